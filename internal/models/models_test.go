package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestCaptureWithNullClient(t *testing.T) {
	c := Capture{
		ID:         "0192a1b2-0000-7000-8000-000000000000",
		ReceivedAt: time.Date(2009, 2, 13, 23, 31, 30, 0, time.UTC),
		Path:       `HTML BODY A[id="x"]`,
		Fields:     map[string]string{},
	}

	jsonData, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Failed to marshal capture with null client: %v", err)
	}

	s := string(jsonData)
	if !strings.Contains(s, `"client":null`) {
		t.Errorf("Expected null client in %s", s)
	}
	if strings.Contains(s, "referer") || strings.Contains(s, "user_agent") {
		t.Errorf("Expected empty referer and user agent to be omitted: %s", s)
	}
}
