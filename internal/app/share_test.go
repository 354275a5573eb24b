package app

import (
	"errors"
	"net/url"
	"testing"

	"github.com/klabast/wb-services/team-kalender/internal/planner"
)

func TestShareTokenRoundTrip(t *testing.T) {
	store := planner.NewStore(planner.NewData())
	store.InsertMember("Anna")
	store.InsertMember("Ben")
	if err := store.SetStatus(1, 2025, 6, 14, planner.StatusVacationMorning); err != nil {
		t.Fatalf("SetStatus() failed: %v", err)
	}
	want, _ := planner.Marshal(store.Data())

	token, err := EncodeShareToken(store.Data())
	if err != nil {
		t.Fatalf("EncodeShareToken() failed: %v", err)
	}

	for name, input := range map[string]string{
		"bare token":  token,
		"fragment":    SharePrefix + token,
		"full link":   "https://teamkalender.example/" + SharePrefix + token,
		"url escaped": url.QueryEscape(token),
	} {
		t.Run(name, func(t *testing.T) {
			raw, err := DecodeShareToken(input)
			if err != nil {
				t.Fatalf("DecodeShareToken() failed: %v", err)
			}
			if string(raw) != string(want) {
				t.Errorf("Expected %s, got %s", want, raw)
			}
		})
	}
}

func TestDecodeShareTokenRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", SharePrefix, "not base64!", "aGVsbG8="} {
		if _, err := DecodeShareToken(input); !errors.Is(err, planner.ErrMalformedPayload) {
			t.Errorf("Expected ErrMalformedPayload for %q, got %v", input, err)
		}
	}
}
