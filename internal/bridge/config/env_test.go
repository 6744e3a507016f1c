package config

import (
	"os"
	"testing"
)

func TestEnvOrDefault(t *testing.T) {
	const key = "BRIDGE_TEST_STRING"
	_ = os.Unsetenv(key)
	if got := EnvOrDefault(key, "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	_ = os.Setenv(key, "value")
	defer os.Unsetenv(key)
	if got := EnvOrDefault(key, "fallback"); got != "value" {
		t.Fatalf("expected value, got %q", got)
	}
}

func TestEnvOrDefaultInt64(t *testing.T) {
	const key = "BRIDGE_TEST_INT64"
	_ = os.Unsetenv(key)
	if got := EnvOrDefaultInt64(key, 10); got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
	_ = os.Setenv(key, "5")
	defer os.Unsetenv(key)
	if got := EnvOrDefaultInt64(key, 10); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
	_ = os.Setenv(key, "not-a-number")
	if got := EnvOrDefaultInt64(key, 7); got != 7 {
		t.Fatalf("expected fallback on parse error, got %d", got)
	}
}

func TestEnvOrDefaultUint64(t *testing.T) {
	const key = "BRIDGE_TEST_UINT64"
	_ = os.Unsetenv(key)
	if got := EnvOrDefaultUint64(key, 99); got != 99 {
		t.Fatalf("expected 99, got %d", got)
	}
	_ = os.Setenv(key, "42")
	defer os.Unsetenv(key)
	if got := EnvOrDefaultUint64(key, 99); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestEnvList(t *testing.T) {
	const key = "BRIDGE_TEST_LIST"
	_ = os.Unsetenv(key)
	if got := EnvList(key); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
	_ = os.Setenv(key, " ada , ERC20,  ,usdm ")
	defer os.Unsetenv(key)
	got := EnvList(key)
	want := []string{"ada", "ERC20", "usdm"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
