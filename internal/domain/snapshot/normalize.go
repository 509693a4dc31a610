package snapshot

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Canonical stat keys. The source site serves the same statistic under
// Portuguese and English labels depending on the visitor's locale.
const (
	KeyOnTarget         Key = "On Target"
	KeyOffTarget        Key = "Off Target"
	KeyDangerousAttacks Key = "Dangerous Attacks"
	KeyAttacks          Key = "Attacks"
	KeyCorners          Key = "Corners"
	KeyCornersHalf      Key = "Corners (Half)"
	KeyPossession       Key = "Possession"
	KeyGoals            Key = "Goals"
	KeyYellowCard       Key = "Yellow Card"
	KeyRedCard          Key = "Red Card"
	KeyYellowRedCard    Key = "Yellow/Red Card"
	KeyPenalties        Key = "Penalties"
	KeyBallSafe         Key = "Ball Safe"
	KeySubstitutions    Key = "Substitutions"
	KeyMinute           Key = "Minute"
)

var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func toASCII(text string) string {
	folded, _, err := transform.String(asciiFold, text)
	if err != nil {
		return text
	}
	return folded
}

// Normalize maps a scraped statistic label to its canonical key. Matching is
// case and diacritic insensitive. Exact-phrase checks run before substring
// heuristics so "Corners (Half)" never collapses into plain "Corners".
// Unrecognized labels pass through trimmed: rules can still reference the
// long tail of untranslated stat names by exact string.
func Normalize(label string) Key {
	raw := strings.ToLower(strings.TrimSpace(toASCII(label)))

	switch {
	case strings.Contains(raw, "on target"), strings.Contains(raw, "a baliza"),
		strings.Contains(raw, "ao alvo"), strings.Contains(raw, "ao gol"), strings.Contains(raw, "no gol"):
		return KeyOnTarget
	case (strings.Contains(raw, "off target") || strings.Contains(raw, "fora")) &&
		(strings.Contains(raw, "chute") || strings.Contains(raw, "shot")):
		return KeyOffTarget
	case strings.Contains(raw, "dangerous") && strings.Contains(raw, "attack"),
		strings.Contains(raw, "perigoso"):
		return KeyDangerousAttacks
	case (strings.Contains(raw, "corner") || strings.Contains(raw, "escanteio")) &&
		(strings.Contains(raw, "half") || strings.Contains(raw, "tempo")):
		return KeyCornersHalf
	case strings.Contains(raw, "corner"), strings.Contains(raw, "escanteio"):
		return KeyCorners
	case strings.Contains(raw, "attack"), strings.Contains(raw, "ataque"):
		return KeyAttacks
	case strings.Contains(raw, "possession"), strings.Contains(raw, "posse"):
		return KeyPossession
	case raw == "golos", raw == "goals", raw == "goal", raw == "gols":
		return KeyGoals
	case strings.Contains(raw, "yellow/red"), strings.Contains(raw, "yellow red"), strings.Contains(raw, "amarelo/vermelho"):
		return KeyYellowRedCard
	case strings.Contains(raw, "yellow card"), strings.Contains(raw, "amarelo"):
		return KeyYellowCard
	case strings.Contains(raw, "red card"), strings.Contains(raw, "vermelho"):
		return KeyRedCard
	case strings.Contains(raw, "penalt"):
		return KeyPenalties
	case strings.Contains(raw, "ball safe"), strings.Contains(raw, "bola segura"):
		return KeyBallSafe
	case strings.Contains(raw, "substitution"), strings.Contains(raw, "substitu"):
		return KeySubstitutions
	case raw == "minute", raw == "minutes", raw == "minuto", raw == "minutos", raw == "min":
		return KeyMinute
	default:
		return Key(strings.TrimSpace(label))
	}
}
