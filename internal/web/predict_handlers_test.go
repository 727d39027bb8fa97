package web

import (
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestPredictSingleMode(t *testing.T) {
	ws, sess := newTestServer(t)
	loadDataset(t, ws)

	w := postForm(t, ws, "/api/predict", url.Values{
		"component": {"X"},
		"mode":      {"single"},
		"holdout":   {"2"},
	})
	if msg := wantNotice(t, w); !strings.Contains(msg, "mean relative error") {
		t.Fatalf("notice = %q", msg)
	}

	pred := sess.Prediction()
	if pred == nil {
		t.Fatal("no prediction stored")
	}
	if pred.Strategy != "POD+RBF" {
		t.Errorf("Strategy = %q", pred.Strategy)
	}
	if pred.Mode != "single" || pred.Component != "X" {
		t.Errorf("Mode = %q, Component = %q", pred.Mode, pred.Component)
	}
	if len(pred.Series) != 1 {
		t.Fatalf("Series = %d, want 1", len(pred.Series))
	}
	s := pred.Series[0]
	if s.Tag != "30" || s.Param != 30 {
		t.Errorf("series tag = %q param = %g", s.Tag, s.Param)
	}
	want := []float64{31, 32, 33}
	for i, v := range s.Truth {
		if v != want[i] {
			t.Errorf("Truth[%d] = %g, want %g", i, v, want[i])
		}
	}
	if len(s.Pred) != 3 || len(s.Errors) != 3 {
		t.Errorf("Pred = %d values, Errors = %d values", len(s.Pred), len(s.Errors))
	}
	for i, e := range s.Errors {
		if math.IsNaN(e) || math.IsInf(e, 0) || e < 0 {
			t.Errorf("Errors[%d] = %g", i, e)
		}
	}
	if pred.WorstTag != "30" {
		t.Errorf("WorstTag = %q", pred.WorstTag)
	}
}

func TestPredictMultiMode(t *testing.T) {
	ws, sess := newTestServer(t)
	loadDataset(t, ws)

	w := postForm(t, ws, "/api/predict", url.Values{
		"component": {"S"},
		"mode":      {"multi"},
		"holdout":   {"1,3"},
	})
	wantNotice(t, w)

	pred := sess.Prediction()
	if pred == nil {
		t.Fatal("no prediction stored")
	}
	if pred.Mode != "multi" || pred.Component != "S" {
		t.Errorf("Mode = %q, Component = %q", pred.Mode, pred.Component)
	}
	if len(pred.Series) != 2 {
		t.Fatalf("Series = %d, want 2", len(pred.Series))
	}
	if pred.Series[0].Tag != "20" || pred.Series[1].Tag != "40" {
		t.Errorf("tags = %q, %q", pred.Series[0].Tag, pred.Series[1].Tag)
	}
	if pred.WorstSeries() == nil {
		t.Error("WorstSeries not resolvable")
	}
}

func TestPredictDefaultHoldout(t *testing.T) {
	ws, sess := newTestServer(t)
	loadDataset(t, ws)

	w := postForm(t, ws, "/api/predict", url.Values{"component": {"Y"}})
	wantNotice(t, w)

	pred := sess.Prediction()
	if pred == nil {
		t.Fatal("no prediction stored")
	}
	if len(pred.Series) != 3 {
		t.Fatalf("Series = %d, want first three rows", len(pred.Series))
	}
	for i, tag := range []string{"10", "20", "30"} {
		if pred.Series[i].Tag != tag {
			t.Errorf("Series[%d].Tag = %q, want %q", i, pred.Series[i].Tag, tag)
		}
	}
}

func TestPredictWithoutDataset(t *testing.T) {
	ws, _ := newTestServer(t)
	w := postForm(t, ws, "/api/predict", url.Values{"component": {"X"}})
	wantError(t, w, "no dataset")
}

func TestPredictRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"unknown component", url.Values{"component": {"Q"}}, "unknown component"},
		{"unknown mode", url.Values{"component": {"X"}, "mode": {"loocv"}}, "unknown validation mode"},
		{"duplicate holdout", url.Values{"component": {"X"}, "holdout": {"1,1"}}, "duplicate"},
		{"holdout out of range", url.Values{"component": {"X"}, "holdout": {"9"}}, "out of range"},
		{"holdout covers all", url.Values{"component": {"X"}, "holdout": {"0,1,2,3,4"}}, "covers every row"},
		{"holdout not a number", url.Values{"component": {"X"}, "holdout": {"two"}}, "invalid holdout"},
		{"bad reduction", url.Values{"component": {"X"}, "reduction": {"DMD"}}, "unknown reduction"},
		{"bad regressor", url.Values{"component": {"X"}, "regressor": {"SVR"}}, "unknown regressor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws, _ := newTestServer(t)
			loadDataset(t, ws)
			w := postForm(t, ws, "/api/predict", tt.form)
			wantError(t, w, tt.want)
		})
	}
}

func TestPredictGetNotAllowed(t *testing.T) {
	ws, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/predict", nil)
	w := httptest.NewRecorder()
	ws.setupRoutes().ServeHTTP(w, withSession(req))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
}

func TestKFoldStoresResult(t *testing.T) {
	ws, sess := newTestServer(t)
	loadDataset(t, ws)

	w := postForm(t, ws, "/api/kfold", url.Values{
		"component": {"X"},
		"k":         {"3"},
		"seed":      {"42"},
	})
	if msg := wantNotice(t, w); !strings.Contains(msg, "3-fold") {
		t.Fatalf("notice = %q", msg)
	}

	res := sess.KFold()
	if res == nil {
		t.Fatal("no k-fold result stored")
	}
	if res.K != 3 || res.Seed != 42 {
		t.Errorf("K = %d, Seed = %d", res.K, res.Seed)
	}
	if res.Strategy != "POD+RBF" || res.Component != "X" {
		t.Errorf("Strategy = %q, Component = %q", res.Strategy, res.Component)
	}
	if len(res.FoldErrors) != 3 {
		t.Fatalf("FoldErrors = %v", res.FoldErrors)
	}
	var sum float64
	for i, e := range res.FoldErrors {
		if math.IsNaN(e) || math.IsInf(e, 0) || e < 0 {
			t.Errorf("FoldErrors[%d] = %g", i, e)
		}
		sum += e
	}
	if got := sum / 3; math.Abs(got-res.Mean) > 1e-12 {
		t.Errorf("Mean = %g, want %g", res.Mean, got)
	}
}

func TestKFoldRejectsTooManyFolds(t *testing.T) {
	ws, _ := newTestServer(t)
	loadDataset(t, ws)
	w := postForm(t, ws, "/api/kfold", url.Values{"component": {"X"}, "k": {"9"}})
	q := redirectQuery(t, w)
	if q.Get("error") == "" {
		t.Fatal("expected an error for k larger than the sample count")
	}
}

func TestKFoldWithoutDataset(t *testing.T) {
	ws, _ := newTestServer(t)
	w := postForm(t, ws, "/api/kfold", url.Values{"component": {"X"}})
	wantError(t, w, "no dataset")
}
