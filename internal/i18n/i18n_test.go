package i18n

import "testing"

func TestTranslateKnownKeys(t *testing.T) {
	tr := NewTranslator("es")

	cases := []struct {
		locale string
		key    string
		data   map[string]any
		want   string
	}{
		{"es", "scan_not_found", nil, "Participante no encontrado o inactivo"},
		{"en", "scan_not_found", nil, "Participant not found or inactive"},
		{"es", "import_too_many_rows", map[string]any{"Max": 1000}, "El archivo supera el máximo de 1000 filas"},
		{"en", "scan_already_recorded", map[string]any{"Time": "09:15"}, "Attendance already recorded at 09:15"},
	}
	for _, tc := range cases {
		if got := tr.T(tc.locale, tc.key, tc.data); got != tc.want {
			t.Errorf("T(%s, %s) = %q, want %q", tc.locale, tc.key, got, tc.want)
		}
	}
}

func TestTranslateFallbacks(t *testing.T) {
	tr := NewTranslator("es")

	// Unknown locale falls back to the default language.
	if got := tr.T("de", "participant_not_found", nil); got != "Participante no encontrado" {
		t.Errorf("unexpected fallback: %q", got)
	}
	// Unknown key falls back to the key itself.
	if got := tr.T("es", "no_such_key", nil); got != "no_such_key" {
		t.Errorf("unexpected missing-key result: %q", got)
	}
	if got := tr.T("es", "", nil); got != "" {
		t.Errorf("empty key should yield empty string, got %q", got)
	}
}
