package models

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalizeClampsDescription(t *testing.T) {
	profile := ProfileData{
		CompanyDescription: strings.Repeat("a", MaxDescriptionLength+100),
	}
	profile.Normalize()

	if len(profile.CompanyDescription) != MaxDescriptionLength {
		t.Errorf("Expected description clamped to %d, got %d", MaxDescriptionLength, len(profile.CompanyDescription))
	}
}

func TestNormalizeClampsMultiByteDescription(t *testing.T) {
	profile := ProfileData{
		CompanyDescription: strings.Repeat("é", MaxDescriptionLength+10),
	}
	profile.Normalize()

	if !utf8.ValidString(profile.CompanyDescription) {
		t.Error("Truncation must not split a multi-byte rune")
	}
	if got := utf8.RuneCountInString(profile.CompanyDescription); got != MaxDescriptionLength {
		t.Errorf("Expected %d characters, got %d", MaxDescriptionLength, got)
	}
}

func TestNormalizeClampsLists(t *testing.T) {
	profile := ProfileData{
		ServiceLine:   []string{"Software Development", "Cybersecurity Consulting", "Data Analytics"},
		Tier1Keywords: []string{"solar", "energy", "panels", "installation"},
		Tier2Keywords: []string{"construction", "engineering", "utilities", "grid"},
	}
	profile.Normalize()

	if len(profile.ServiceLine) != MaxServiceLines {
		t.Errorf("Expected %d service lines, got %d", MaxServiceLines, len(profile.ServiceLine))
	}
	if len(profile.Tier1Keywords) != MaxTierKeywords {
		t.Errorf("Expected %d tier1 keywords, got %d", MaxTierKeywords, len(profile.Tier1Keywords))
	}
	if len(profile.Tier2Keywords) != MaxTierKeywords {
		t.Errorf("Expected %d tier2 keywords, got %d", MaxTierKeywords, len(profile.Tier2Keywords))
	}
}

func TestNormalizeDropsEmptyEntries(t *testing.T) {
	profile := ProfileData{
		CompanyName: "  Acme Corp  ",
		ServiceLine: []string{"  ", "Consulting", ""},
		Emails:      []string{" info@acme.com ", ""},
	}
	profile.Normalize()

	if profile.CompanyName != "Acme Corp" {
		t.Errorf("Expected trimmed company name, got %q", profile.CompanyName)
	}
	if len(profile.ServiceLine) != 1 || profile.ServiceLine[0] != "Consulting" {
		t.Errorf("Expected single trimmed service line, got %v", profile.ServiceLine)
	}
	if len(profile.Emails) != 1 || profile.Emails[0] != "info@acme.com" {
		t.Errorf("Expected single trimmed email, got %v", profile.Emails)
	}
}

func TestSnapshotMessages(t *testing.T) {
	snapshot := NewConversationSnapshot("Analyze https://acme.com", "Acme builds rockets.")
	messages := snapshot.Messages()

	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != RoleUser || messages[1].Role != RoleAssistant {
		t.Errorf("Unexpected roles: %s, %s", messages[0].Role, messages[1].Role)
	}
	if messages[0].ID == messages[1].ID {
		t.Error("Snapshot messages must have distinct IDs")
	}
}
