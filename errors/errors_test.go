package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			if result := test.class.String(); result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection timeout", ErrConnectionTimeout, true},
		{"connection lost", ErrConnectionLost, true},
		{"context canceled", context.Canceled, true},
		{"invalid data", ErrInvalidData, false},
		{"broken pipe in message", fmt.Errorf("write: broken pipe"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if result := IsTransient(test.err); result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil", nil, ErrorTransient},
		{"timeout", ErrConnectionTimeout, ErrorTransient},
		{"missing config", ErrMissingConfig, ErrorFatal},
		{"protocol violation", ErrProtocolViolate, ErrorInvalid},
		{"unknown", fmt.Errorf("something odd"), ErrorTransient},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if result := Classify(test.err); result != test.expected {
				t.Errorf("expected %v, got %v", test.expected, result)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "c", "m", "a") != nil {
		t.Error("wrapping nil should return nil")
	}

	result := Wrap(fmt.Errorf("original error"), "bridge", "send", "write frame")
	expected := "bridge.send: write frame failed: original error"
	if result == nil || result.Error() != expected {
		t.Errorf("expected '%s', got '%v'", expected, result)
	}
}

func TestWrapClassified(t *testing.T) {
	baseErr := fmt.Errorf("original error")

	tests := []struct {
		name     string
		wrapFunc func(error, string, string, string) error
		class    ErrorClass
	}{
		{"WrapTransient", WrapTransient, ErrorTransient},
		{"WrapFatal", WrapFatal, ErrorFatal},
		{"WrapInvalid", WrapInvalid, ErrorInvalid},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := test.wrapFunc(baseErr, "component", "method", "action")

			var ce *ClassifiedError
			if !errors.As(result, &ce) {
				t.Fatal("result should be a ClassifiedError")
			}
			if ce.Class != test.class {
				t.Errorf("expected %v, got %v", test.class, ce.Class)
			}
			if !strings.Contains(ce.Error(), "component.method: action failed") {
				t.Errorf("error should contain standard format, got: %s", ce.Error())
			}
			if !errors.Is(result, baseErr) {
				t.Error("classified error should unwrap to base error")
			}
		})
	}
}

func TestReportable(t *testing.T) {
	err := Reportable("Request not found")
	if !IsReportable(err) {
		t.Fatal("expected reportable error")
	}

	msg, ok := ReportableMessage(fmt.Errorf("outer: %w", err))
	if !ok || msg != "Request not found" {
		t.Errorf("expected verbatim message through wrapping, got %q (%v)", msg, ok)
	}

	formatted := Reportablef("Unsupported function: %s", "foo")
	if formatted.Error() != "Unsupported function: foo" {
		t.Errorf("unexpected message %q", formatted.Error())
	}

	if IsReportable(ErrKeyNotFound) {
		t.Error("sentinel errors are not reportable")
	}
	if _, ok := ReportableMessage(fmt.Errorf("plain")); ok {
		t.Error("plain errors carry no reportable message")
	}
}

func TestWrapReportable(t *testing.T) {
	if WrapReportable(nil, "x") != nil {
		t.Error("wrapping nil should return nil")
	}

	cause := fmt.Errorf("json: unsupported type")
	err := WrapReportable(cause, "result was not serializable")
	if err.Error() != "result was not serializable" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("reportable error should unwrap to its cause")
	}
}

func TestIsUnknownMethod(t *testing.T) {
	if !IsUnknownMethod(fmt.Errorf("resolve Bogus.op: %w", ErrUnknownMethod)) {
		t.Error("wrapped ErrUnknownMethod should be detected")
	}
	if IsUnknownMethod(Reportable("Unsupported method")) {
		t.Error("reportable errors are not unknown-method errors")
	}
}
