package pkg

import (
	"strings"
	"testing"
)

func TestRandInviteCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		code, err := RandInviteCode(8)
		if err != nil {
			t.Fatalf("RandInviteCode: %v", err)
		}
		if len(code) != 8 {
			t.Fatalf("len = %d, want 8", len(code))
		}
		for _, ch := range code {
			if !strings.ContainsRune(inviteAlphabet, ch) {
				t.Fatalf("char %q outside alphabet", ch)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Error("codes should vary")
	}
}
