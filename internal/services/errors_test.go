package services_test

import (
	"errors"
	"strings"
	"testing"

	"clearvoice/internal/services"
)

func TestWrapTagsAndFormats(t *testing.T) {
	cause := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "dsp", "spectrogram", "helper exited", cause)

	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatal("marker lost")
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause lost")
	}
	for _, part := range []string{"dsp", "spectrogram", "helper exited", "boom"} {
		if !strings.Contains(err.Error(), part) {
			t.Fatalf("message missing %q: %s", part, err)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatal("expected transient marker")
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("unexpected message: %s", err)
	}
}

func TestIsSetup(t *testing.T) {
	cases := []struct {
		err   error
		setup bool
	}{
		{services.Wrap(services.ErrConfiguration, "train", "", "", nil), true},
		{services.Wrap(services.ErrValidation, "blob", "", "", nil), true},
		{services.Wrap(services.ErrNotFound, "dataset", "", "", nil), true},
		{services.Wrap(services.ErrExternalTool, "dsp", "", "", nil), false},
		{errors.New("plain"), false},
	}
	for i, tc := range cases {
		if got := services.IsSetup(tc.err); got != tc.setup {
			t.Fatalf("case %d: IsSetup=%v, want %v", i, got, tc.setup)
		}
	}
}
