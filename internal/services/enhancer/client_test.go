package enhancer

import (
	"context"
	"errors"
	"os"
	"testing"

	"clearvoice/internal/blob"
	"clearvoice/internal/services"
	"clearvoice/internal/tensor"
)

func argValue(args []string, flag string) string {
	for i, arg := range args {
		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func mustZeros(t *testing.T, shape ...int) *tensor.Tensor {
	t.Helper()
	ts, err := tensor.New(shape...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ts
}

func mustTensor(t *testing.T, data []float32, shape ...int) *tensor.Tensor {
	t.Helper()
	ts, err := tensor.FromData(data, shape...)
	if err != nil {
		t.Fatalf("FromData: %v", err)
	}
	return ts
}

func sampleTable(t *testing.T, n int) *blob.Table {
	t.Helper()
	table, err := blob.NewTable(
		mustZeros(t, n, 2, 2),
		mustZeros(t, n, 3, 2),
		mustZeros(t, n, 3, 2),
		mustZeros(t, n, 3, 2),
	)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return table
}

func TestTrainPassesArchives(t *testing.T) {
	var gotArgs []string
	cli := NewCLI(t.TempDir(), "/models",
		WithBinary("fake-net"),
		WithCommandRunner(func(_ context.Context, name string, args ...string) error {
			if name != "fake-net" {
				t.Errorf("binary = %q, want fake-net", name)
			}
			gotArgs = args
			return nil
		}))

	err := cli.Train(context.Background(), TrainRequest{
		TrainArchive:      "/staging/train.npz",
		ValidationArchive: "/staging/validation.npz",
		ModelDir:          "/models",
		TensorboardDir:    "/logs/tb",
	})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if gotArgs[0] != "train" {
		t.Errorf("subcommand = %q, want train", gotArgs[0])
	}
	if v := argValue(gotArgs, "--train"); v != "/staging/train.npz" {
		t.Errorf("train archive = %q", v)
	}
	if v := argValue(gotArgs, "--validation"); v != "/staging/validation.npz" {
		t.Errorf("validation archive = %q", v)
	}
	if v := argValue(gotArgs, "--model-dir"); v != "/models" {
		t.Errorf("model dir = %q", v)
	}
}

func TestTrainRequiresArchive(t *testing.T) {
	cli := NewCLI(t.TempDir(), "/models",
		WithCommandRunner(func(_ context.Context, _ string, _ ...string) error {
			t.Fatal("helper should not run without an archive")
			return nil
		}))

	err := cli.Train(context.Background(), TrainRequest{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestEvaluateParsesLoss(t *testing.T) {
	cli := NewCLI(t.TempDir(), "/models",
		WithCommandRunner(func(_ context.Context, _ string, args ...string) error {
			// The staged batch must be a complete, loadable blob.
			if _, err := blob.Load(argValue(args, "--batch")); err != nil {
				return err
			}
			return os.WriteFile(argValue(args, "--out"), []byte(`{"loss":0.042}`), 0o644)
		}))

	loss, err := cli.Evaluate(context.Background(), sampleTable(t, 4))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if loss != 0.042 {
		t.Errorf("loss = %f, want 0.042", loss)
	}
}

func TestPredictRejectsShapeMismatch(t *testing.T) {
	cli := NewCLI(t.TempDir(), "/models",
		WithCommandRunner(func(_ context.Context, _ string, args ...string) error {
			return tensor.WriteNPYFile(argValue(args, "--out"), mustZeros(t, 2, 5))
		}))

	mixed := mustZeros(t, 3, 5)
	_, err := cli.Predict(context.Background(), mixed, mustZeros(t, 3, 2, 2))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("error = %v, want ErrExternalTool", err)
	}
}

func TestPredictRoundTripsTensors(t *testing.T) {
	mixed := mustTensor(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	video := mustZeros(t, 2, 4)
	want := mustTensor(t, []float32{6, 5, 4, 3, 2, 1}, 2, 3)

	cli := NewCLI(t.TempDir(), "/models",
		WithCommandRunner(func(_ context.Context, _ string, args ...string) error {
			staged, err := tensor.ReadNPYFile(argValue(args, "--mixed"))
			if err != nil {
				return err
			}
			if !staged.Equal(mixed) {
				t.Error("staged mixed tensor does not match input")
			}
			if _, err := tensor.ReadNPYFile(argValue(args, "--video")); err != nil {
				return err
			}
			return tensor.WriteNPYFile(argValue(args, "--out"), want)
		}))

	got, err := cli.Predict(context.Background(), mixed, video)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("enhanced tensor mismatch: shape %v", got.Shape())
	}
}
