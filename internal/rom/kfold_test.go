package rom

import (
	"math"
	"reflect"
	"testing"
)

func TestKFoldPartition(t *testing.T) {
	folds, err := KFold(10, 3, 7)
	if err != nil {
		t.Fatalf("KFold: %v", err)
	}
	if len(folds) != 3 {
		t.Fatalf("got %d folds, want 3", len(folds))
	}
	// n%k leading folds take the extra element.
	for i, want := range []int{4, 3, 3} {
		if len(folds[i]) != want {
			t.Errorf("fold %d has %d indexes, want %d", i, len(folds[i]), want)
		}
	}

	seen := make(map[int]bool)
	for _, fold := range folds {
		for _, idx := range fold {
			if idx < 0 || idx >= 10 {
				t.Fatalf("index %d out of range", idx)
			}
			if seen[idx] {
				t.Fatalf("index %d appears in two folds", idx)
			}
			seen[idx] = true
		}
	}
	if len(seen) != 10 {
		t.Errorf("folds cover %d indexes, want 10", len(seen))
	}
}

func TestKFoldDeterministic(t *testing.T) {
	a, err := KFold(8, 4, 42)
	if err != nil {
		t.Fatalf("KFold: %v", err)
	}
	b, err := KFold(8, 4, 42)
	if err != nil {
		t.Fatalf("KFold: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different folds")
	}
}

func TestKFoldValidation(t *testing.T) {
	if _, err := KFold(5, 1, 1); err == nil {
		t.Error("k=1 accepted, want error")
	}
	if _, err := KFold(5, 6, 1); err == nil {
		t.Error("more folds than samples accepted, want error")
	}
}

func TestKFoldErrors(t *testing.T) {
	db := testDatabase(t, 6)
	errs, err := KFoldErrors(db, NewPOD(0), NewRBF(RBFOptions{Epsilon: 0.5}), 3, 1)
	if err != nil {
		t.Fatalf("KFoldErrors: %v", err)
	}
	if len(errs) != 3 {
		t.Fatalf("got %d fold errors, want 3", len(errs))
	}
	for i, e := range errs {
		if math.IsNaN(e) || math.IsInf(e, 0) {
			t.Errorf("fold %d error is %g", i, e)
		}
		if e < 0 {
			t.Errorf("fold %d error is negative: %g", i, e)
		}
	}
}

func TestKFoldErrorsDeterministic(t *testing.T) {
	db := testDatabase(t, 6)
	a, err := KFoldErrors(db, NewPOD(0), NewRBF(RBFOptions{Epsilon: 0.5}), 3, 9)
	if err != nil {
		t.Fatalf("KFoldErrors: %v", err)
	}
	b, err := KFoldErrors(db, NewPOD(0), NewRBF(RBFOptions{Epsilon: 0.5}), 3, 9)
	if err != nil {
		t.Fatalf("KFoldErrors: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("same seed produced different errors: %v vs %v", a, b)
	}
}

func TestKFoldErrorsRejectsBadFoldCount(t *testing.T) {
	db := testDatabase(t, 4)
	if _, err := KFoldErrors(db, NewPOD(0), NewRBF(RBFOptions{}), 5, 1); err == nil {
		t.Error("5 folds over 4 samples accepted, want error")
	}
	if _, err := KFoldErrors(db, NewPOD(0), NewRBF(RBFOptions{}), 1, 1); err == nil {
		t.Error("k=1 accepted, want error")
	}
}
