package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestAppError_New_Success(t *testing.T) {
	err := New(ErrCodeNotFound, "not found")
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, err.Code)
	}
	if err.Message != "not found" {
		t.Errorf("expected message 'not found', got %q", err.Message)
	}
	if err.Retryable != false {
		t.Error("NOT_FOUND should not be retryable")
	}
}

func TestAppError_New_Retryable(t *testing.T) {
	err := New(ErrCodeTimeout, "timed out")
	if !err.Retryable {
		t.Error("TIMEOUT should be retryable")
	}
}

func TestAppError_NotFound_Success(t *testing.T) {
	err := NotFound("workflow run", "123")
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %s", err.Code)
	}
	if err.Details["resource"] != "workflow run" {
		t.Errorf("expected resource=workflow run, got %v", err.Details["resource"])
	}
	if err.Details["id"] != "123" {
		t.Errorf("expected id=123, got %v", err.Details["id"])
	}
	if err.Retryable {
		t.Error("NotFound should not be retryable")
	}
}

func TestAppError_NotFound_EmptyID(t *testing.T) {
	err := NotFound("workflow run", "")
	if _, ok := err.Details["id"]; ok {
		t.Error("expected no 'id' key in details when id is empty")
	}
}

func TestAppError_Internal_Success(t *testing.T) {
	cause := fmt.Errorf("store connection lost")
	err := Internal(cause)
	if err.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", err.Code)
	}
	if err.Cause != cause {
		t.Error("expected cause to be set")
	}
	if err.Retryable {
		t.Error("Internal should NOT be retryable by default")
	}
}

func TestAppError_Dependency_Success(t *testing.T) {
	cause := fmt.Errorf("open results_1.txt: no such file")
	err := Dependency("stage 1 produced no values", cause)
	if err.Code != ErrCodeDependency {
		t.Errorf("expected DEPENDENCY_ERROR, got %s", err.Code)
	}
	if err.Retryable {
		t.Error("Dependency should not be retryable")
	}
	if !strings.Contains(err.Error(), "stage 1 produced no values") {
		t.Errorf("Error() should contain reason, got %q", err.Error())
	}
}

func TestAppError_Security_Success(t *testing.T) {
	err := Security("public key missing", nil)
	if err.Code != ErrCodeSecurity {
		t.Errorf("expected SECURITY_ERROR, got %s", err.Code)
	}
	if err.Retryable {
		t.Error("Security should not be retryable")
	}
}

func TestAppError_LocalResource_Success(t *testing.T) {
	err := LocalResource("/data/shapes.shp", fmt.Errorf("stat failed"))
	if err.Code != ErrCodeLocalResource {
		t.Errorf("expected LOCAL_RESOURCE_ERROR, got %s", err.Code)
	}
	if err.Details["path"] != "/data/shapes.shp" {
		t.Errorf("expected path in details, got %v", err.Details["path"])
	}
}

func TestAppError_InvalidInput_Success(t *testing.T) {
	err := InvalidInput("stage", "must be numeric")
	if err.Code != ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", err.Code)
	}
	if err.Details["field"] != "stage" {
		t.Errorf("expected field=stage, got %v", err.Details["field"])
	}
}

func TestAppError_WithCause_Chain(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := NotFound("item", "1").WithCause(cause)
	if err.Cause != cause {
		t.Error("expected cause to be set via WithCause")
	}
	if !strings.Contains(err.Error(), "root cause") {
		t.Errorf("Error() should contain cause, got %q", err.Error())
	}
}

func TestAppError_WithDetails_Merge(t *testing.T) {
	err := NotFound("item", "1").WithDetails(map[string]any{
		"extra": "info",
	})
	if err.Details["extra"] != "info" {
		t.Errorf("expected extra=info in details")
	}
	if err.Details["resource"] != "item" {
		t.Error("expected original details to be preserved")
	}

	// Test merging into existing details
	err.WithDetails(map[string]any{
		"another": "detail",
	})
	if err.Details["another"] != "detail" {
		t.Error("expected another=detail to be merged")
	}
	if err.Details["extra"] != "info" {
		t.Error("expected extra=info to be preserved after second merge")
	}
}

func TestAppError_WithDetails_Nil(t *testing.T) {
	err := Internal(nil).WithDetails(nil)
	if err.Details == nil {
		t.Fatal("expected Details map to be initialized even with nil input")
	}
}

func TestAppError_WithDetail_Single(t *testing.T) {
	err := Internal(nil).WithDetail("run_id", "abc")
	if err.Details["run_id"] != "abc" {
		t.Errorf("expected run_id=abc in details")
	}

	// Test overwriting
	err.WithDetail("run_id", "def")
	if err.Details["run_id"] != "def" {
		t.Errorf("expected run_id=def after overwrite")
	}
}

func TestAppError_WithDetail_NilMap(t *testing.T) {
	err := &AppError{}
	err.WithDetail("key", "value")
	if err.Details == nil {
		t.Fatal("expected Details map to be initialized")
	}
	if err.Details["key"] != "value" {
		t.Errorf("expected key=value, got %v", err.Details["key"])
	}
}

func TestAppError_Error_Format(t *testing.T) {
	err := NotFound("workflow run", "5")
	s := err.Error()
	if !strings.Contains(s, "NOT_FOUND") {
		t.Errorf("expected error string to contain code, got %q", s)
	}
	if !strings.Contains(s, "not found") {
		t.Errorf("expected error string to contain message, got %q", s)
	}
}

func TestAppError_Unwrap_Success(t *testing.T) {
	cause := fmt.Errorf("underlying")
	err := Internal(cause)
	if err.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}

	err2 := NotFound("x", "")
	if err2.Unwrap() != nil {
		t.Error("Unwrap should return nil when no cause")
	}
}

func TestAppError_Constructors_Table(t *testing.T) {
	tests := []struct {
		name      string
		err       *AppError
		code      ErrorCode
		retryable bool
	}{
		{"Dependency", Dependency("missing manifest", nil), ErrCodeDependency, false},
		{"Security", Security("no key", nil), ErrCodeSecurity, false},
		{"LocalResource", LocalResource("/tmp/f.txt", nil), ErrCodeLocalResource, false},
		{"Graph", Graph("duplicate job name", nil), ErrCodeGraph, false},
		{"StoreError", StoreError(nil), ErrCodeStore, true},
		{"BrokerError", BrokerError("condor", nil), ErrCodeBroker, true},
		{"Timeout", Timeout("submit"), ErrCodeTimeout, true},
		{"AlreadyExists", AlreadyExists("workflow"), ErrCodeAlreadyExists, false},
		{"MissingField", MissingField("name"), ErrCodeMissingField, false},
		{"InvalidFormat", InvalidFormat("stage", "$<number>"), ErrCodeInvalidFormat, false},
		{"Validation", Validation("bad input"), ErrCodeInvalidInput, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Code != tc.code {
				t.Errorf("expected code %s, got %s", tc.code, tc.err.Code)
			}
			if tc.err.Retryable != tc.retryable {
				t.Errorf("expected retryable=%v, got %v", tc.retryable, tc.err.Retryable)
			}
		})
	}
}

func TestErrorCode_IsRetryableCode_Table(t *testing.T) {
	retryable := []ErrorCode{ErrCodeStore, ErrCodeBroker, ErrCodeTimeout, ErrCodeUnavailable}
	for _, code := range retryable {
		if !IsRetryableCode(code) {
			t.Errorf("expected %s to be retryable", code)
		}
	}

	nonRetryable := []ErrorCode{ErrCodeNotFound, ErrCodeAlreadyExists, ErrCodeInvalidInput, ErrCodeDependency, ErrCodeSecurity, ErrCodeLocalResource, ErrCodeGraph, ErrCodeInternal}
	for _, code := range nonRetryable {
		if IsRetryableCode(code) {
			t.Errorf("expected %s to NOT be retryable", code)
		}
	}
}

func TestAppError_IsAppError_Success(t *testing.T) {
	appErr := NotFound("x", "")
	if !IsAppError(appErr) {
		t.Error("expected IsAppError to return true for AppError")
	}

	wrapped := fmt.Errorf("wrapped: %w", appErr)
	if !IsAppError(wrapped) {
		t.Error("expected IsAppError to return true for wrapped AppError")
	}

	plain := fmt.Errorf("plain error")
	if IsAppError(plain) {
		t.Error("expected IsAppError to return false for plain error")
	}
}

func TestAppError_AsAppError_Success(t *testing.T) {
	appErr := Internal(nil)
	wrapped := fmt.Errorf("wrap: %w", appErr)

	got, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AsAppError to succeed for wrapped AppError")
	}
	if got.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", got.Code)
	}

	_, ok = AsAppError(fmt.Errorf("not an app error"))
	if ok {
		t.Error("expected AsAppError to return false for non-AppError")
	}
}

func TestWrap_NilReturnsNil(t *testing.T) {
	if Wrap(nil) != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestWrap_AppErrorPassthrough(t *testing.T) {
	orig := NotFound("item", "1")
	got := Wrap(orig)
	if got != orig {
		t.Error("Wrap should return the original AppError unchanged")
	}
}

func TestWrap_WrappedAppError(t *testing.T) {
	orig := NotFound("item", "1")
	wrapped := fmt.Errorf("outer: %w", orig)
	got := Wrap(wrapped)
	if got.Code != ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %s", got.Code)
	}
}

func TestWrap_PlainError(t *testing.T) {
	plain := fmt.Errorf("something broke")
	got := Wrap(plain)
	if got.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", got.Code)
	}
	if got.Cause != plain {
		t.Error("expected cause to be the original error")
	}
}

func TestFormatResourceError_Success(t *testing.T) {
	err := FormatResourceError("workflow run", 42)
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %s", err.Code)
	}
	if err.Details["id"] != "42" {
		t.Errorf("expected id=42, got %v", err.Details["id"])
	}
	if err.Details["resource"] != "workflow run" {
		t.Errorf("expected resource=workflow run, got %v", err.Details["resource"])
	}
}

func TestFormatResourceError_StringID(t *testing.T) {
	err := FormatResourceError("manifest", "results_2_date.txt")
	if err.Details["id"] != "results_2_date.txt" {
		t.Errorf("expected id=results_2_date.txt, got %v", err.Details["id"])
	}
}

func TestAppError_ImplementsErrorInterface(t *testing.T) {
	var err error = NotFound("test", "1")
	if err.Error() == "" {
		t.Error("Error() should not be empty")
	}

	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		t.Error("stderrors.As should work with AppError")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(StoreError(stderrors.New("locked"))) {
		t.Error("store errors should be retryable")
	}
	if IsRetryable(Security("no value for token", nil)) {
		t.Error("security errors should not be retryable")
	}
	if !IsRetryable(stderrors.New("plain failure")) {
		t.Error("untyped errors should stay retryable")
	}
}
