package engine_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/kbukum/flowkit/engine"
	apperrors "github.com/kbukum/flowkit/errors"
)

func TestEnvSourceVarName(t *testing.T) {
	cases := []struct {
		occurrence, arg, want string
	}{
		{"stage-1-Input", "password", "FLOWKIT_SECRET_STAGE_1_INPUT_PASSWORD"},
		{"stage-1-Filter-date", "api_key", "FLOWKIT_SECRET_STAGE_1_FILTER_DATE_API_KEY"},
		{"stage-2-Processor", "token", "FLOWKIT_SECRET_STAGE_2_PROCESSOR_TOKEN"},
	}
	for _, tc := range cases {
		if got := (engine.EnvSource{}).VarName(tc.occurrence, tc.arg); got != tc.want {
			t.Errorf("VarName(%s, %s) = %q, want %q", tc.occurrence, tc.arg, got, tc.want)
		}
	}
}

func TestEnvSourceMissing(t *testing.T) {
	_, err := engine.EnvSource{}.Collect(context.Background(), "stage-1-Input", "never_set_password")
	if err == nil {
		t.Fatal("Collect found a value for an unset variable")
	}
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Code != apperrors.ErrCodeNotFound {
		t.Fatalf("error = %v, want %s", err, apperrors.ErrCodeNotFound)
	}
}

func TestPromptSourceReadsLines(t *testing.T) {
	var out bytes.Buffer
	src := &engine.PromptSource{In: strings.NewReader("hunter2\nsecond\n"), Out: &out}

	v, err := src.Collect(context.Background(), "stage-1-Input", "password")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if v != "hunter2" {
		t.Errorf("value = %q", v)
	}
	if !strings.Contains(out.String(), "password") || !strings.Contains(out.String(), "stage-1-Input") {
		t.Errorf("prompt = %q, should name the argument and occurrence", out.String())
	}

	v, err = src.Collect(context.Background(), "stage-1-Input", "token")
	if err != nil {
		t.Fatalf("Collect second: %v", err)
	}
	if v != "second" {
		t.Errorf("second value = %q", v)
	}
}

func TestPromptSourceClosedInput(t *testing.T) {
	src := &engine.PromptSource{In: strings.NewReader(""), Out: &bytes.Buffer{}}
	_, err := src.Collect(context.Background(), "stage-1-Input", "password")
	if err == nil {
		t.Fatal("Collect succeeded on closed input")
	}
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Code != apperrors.ErrCodeSecurity {
		t.Fatalf("error = %v, want %s", err, apperrors.ErrCodeSecurity)
	}
}

func TestChainFallsThrough(t *testing.T) {
	chain := engine.Chain{
		engine.StaticSource{},
		engine.StaticSource{"stage-1-Input": {"password": "from-second"}},
	}
	v, err := chain.Collect(context.Background(), "stage-1-Input", "password")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if v != "from-second" {
		t.Errorf("value = %q", v)
	}
}

func TestChainExhausted(t *testing.T) {
	chain := engine.Chain{engine.StaticSource{}, engine.StaticSource{}}
	_, err := chain.Collect(context.Background(), "stage-1-Input", "password")
	if err == nil {
		t.Fatal("Collect succeeded with no value anywhere")
	}
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Code != apperrors.ErrCodeSecurity {
		t.Fatalf("error = %v, want %s", err, apperrors.ErrCodeSecurity)
	}
}

func TestChainStopsOnRealError(t *testing.T) {
	var out bytes.Buffer
	chain := engine.Chain{
		// Closed prompt input is a real failure, not a miss; the chain
		// must not swallow it.
		&engine.PromptSource{In: strings.NewReader(""), Out: &out},
		engine.StaticSource{"stage-1-Input": {"password": "unreachable"}},
	}
	_, err := chain.Collect(context.Background(), "stage-1-Input", "password")
	if err == nil {
		t.Fatal("Collect swallowed a source failure")
	}
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Code != apperrors.ErrCodeSecurity {
		t.Fatalf("error = %v, want %s", err, apperrors.ErrCodeSecurity)
	}
}
