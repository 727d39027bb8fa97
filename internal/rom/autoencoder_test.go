package rom

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func aeTestOptions(maxEpochs int) AutoencoderOptions {
	return AutoencoderOptions{
		Hidden:       []int{5, 2},
		Activation:   ActivationTanh,
		LearningRate: 0.005,
		MaxEpochs:    maxEpochs,
		Tolerance:    1e-12,
		Seed:         7,
	}
}

func aeTestData() *mat.Dense {
	rng := rand.New(rand.NewSource(3))
	snaps := mat.NewDense(6, 8, nil)
	for i := 0; i < 6; i++ {
		for j := 0; j < 8; j++ {
			snaps.Set(i, j, 0.3*rng.Float64())
		}
	}
	return snaps
}

func TestAutoencoderTrainingImproves(t *testing.T) {
	data := aeTestData()

	short := NewAutoencoder(aeTestOptions(1))
	if err := short.Fit(data); err != nil {
		t.Fatalf("Fit(1 epoch): %v", err)
	}
	long := NewAutoencoder(aeTestOptions(400))
	if err := long.Fit(data); err != nil {
		t.Fatalf("Fit(400 epochs): %v", err)
	}

	_, lossShort := short.TrainingStats()
	epochs, lossLong := long.TrainingStats()
	if epochs == 0 {
		t.Fatal("no epochs recorded")
	}
	if math.IsNaN(lossLong) || lossLong > lossShort {
		t.Errorf("loss after 400 epochs = %g, after 1 epoch = %g", lossLong, lossShort)
	}
}

func TestAutoencoderDeterministic(t *testing.T) {
	data := aeTestData()

	a := NewAutoencoder(aeTestOptions(50))
	b := NewAutoencoder(aeTestOptions(50))
	if err := a.Fit(data); err != nil {
		t.Fatalf("Fit a: %v", err)
	}
	if err := b.Fit(data); err != nil {
		t.Fatalf("Fit b: %v", err)
	}

	ra, err := a.Transform(data)
	if err != nil {
		t.Fatalf("Transform a: %v", err)
	}
	rb, err := b.Transform(data)
	if err != nil {
		t.Fatalf("Transform b: %v", err)
	}
	if d := maxAbsDiff(ra, rb); d != 0 {
		t.Errorf("same seed produced different encodings (max diff %g)", d)
	}

	// Refitting the same instance resets its weights, so the encoding must
	// not drift across fits.
	if err := a.Fit(data); err != nil {
		t.Fatalf("refit: %v", err)
	}
	rc, err := a.Transform(data)
	if err != nil {
		t.Fatalf("Transform after refit: %v", err)
	}
	if d := maxAbsDiff(ra, rc); d != 0 {
		t.Errorf("refit drifted encodings (max diff %g)", d)
	}
}

func TestAutoencoderShapes(t *testing.T) {
	data := aeTestData()
	ae := NewAutoencoder(aeTestOptions(10))
	if err := ae.Fit(data); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if ae.LatentDim() != 2 {
		t.Fatalf("LatentDim = %d, want 2", ae.LatentDim())
	}

	reduced, err := ae.Transform(data)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if r, c := reduced.Dims(); r != 6 || c != 2 {
		t.Fatalf("reduced dims = (%d, %d), want (6, 2)", r, c)
	}
	back, err := ae.Inverse(reduced)
	if err != nil {
		t.Fatalf("Inverse: %v", err)
	}
	if r, c := back.Dims(); r != 6 || c != 8 {
		t.Fatalf("inverse dims = (%d, %d), want (6, 8)", r, c)
	}

	if _, err := ae.Transform(mat.NewDense(1, 5, nil)); err == nil {
		t.Error("expected input-width mismatch error")
	}
	if _, err := ae.Inverse(mat.NewDense(1, 3, nil)); err == nil {
		t.Error("expected latent-width mismatch error")
	}
}

func TestAutoencoderUseBeforeFit(t *testing.T) {
	ae := NewAutoencoder(AutoencoderOptions{})
	if _, err := ae.Transform(mat.NewDense(1, 3, nil)); err == nil {
		t.Error("Transform before Fit must fail")
	}
	if _, err := ae.Inverse(mat.NewDense(1, 3, nil)); err == nil {
		t.Error("Inverse before Fit must fail")
	}
}

func TestPODAEComposition(t *testing.T) {
	snaps := rankTwoSnapshots([]float64{-1, -0.5, 0, 0.5, 1, 1.5})

	podae := NewPODAE(NewPOD(3), NewAutoencoder(AutoencoderOptions{
		Hidden:       []int{4, 2},
		Activation:   ActivationTanh,
		LearningRate: 0.01,
		MaxEpochs:    100,
		Seed:         5,
	}))
	if err := podae.Fit(snaps); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if podae.Name() != "PODAE" {
		t.Errorf("Name = %q", podae.Name())
	}

	reduced, err := podae.Transform(snaps)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if _, c := reduced.Dims(); c != 2 {
		t.Fatalf("latent columns = %d, want 2", c)
	}
	back, err := podae.Inverse(reduced)
	if err != nil {
		t.Fatalf("Inverse: %v", err)
	}
	if r, c := back.Dims(); r != 6 || c != 20 {
		t.Fatalf("inverse dims = (%d, %d), want (6, 20)", r, c)
	}
}

func TestNetworkValidation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if _, err := newNetwork([]int{4}, ActivationReLU, rng); err == nil {
		t.Error("single-layer network must fail")
	}
	if _, err := newNetwork([]int{4, 0, 2}, ActivationReLU, rng); err == nil {
		t.Error("zero-width layer must fail")
	}

	net, err := newNetwork([]int{3, 2}, ActivationReLU, rng)
	if err != nil {
		t.Fatalf("newNetwork: %v", err)
	}
	if _, _, err := net.train(mat.NewDense(2, 3, nil), mat.NewDense(3, 2, nil), trainConfig{maxEpochs: 1}); err == nil {
		t.Error("row mismatch must fail")
	}
	if _, _, err := net.train(mat.NewDense(2, 5, nil), mat.NewDense(2, 2, nil), trainConfig{maxEpochs: 1}); err == nil {
		t.Error("width mismatch must fail")
	}
}
