package schema

import (
	"errors"
	"strings"
	"testing"
)

func TestLoadEmbedded(t *testing.T) {
	s, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded failed: %v", err)
	}
	fps := s.GetProperty("render.fps")
	if fps == nil {
		t.Fatal("expected render.fps in schema")
	}
	if !fps.Type.Is("integer") {
		t.Errorf("expected integer, got %s", fps.Type)
	}
	if s.GetProperty("render.nope") != nil {
		t.Error("expected nil for unknown property")
	}
	if s.AllowsAdditionalProperties() {
		t.Error("expected root to reject unknown keys")
	}
}

func TestSchemaType_Unmarshal(t *testing.T) {
	s, err := Parse([]byte(`{"type": ["string", "null"]}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !s.Type.Is("string") || !s.Type.Is("null") || s.Type.Is("number") {
		t.Errorf("unexpected types %v", s.Type.Types)
	}
	if _, err := Parse([]byte(`{"type": 3}`)); err == nil {
		t.Error("expected error for numeric type")
	}
}

func TestValidate(t *testing.T) {
	s, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded failed: %v", err)
	}
	v := NewValidator(s)

	tests := []struct {
		name  string
		data  map[string]any
		paths []string
	}{
		{"empty", map[string]any{}, nil},
		{
			"valid",
			map[string]any{
				"render":   map[string]any{"fps": int64(60), "palette": []any{"#000", "#ff0000"}},
				"isolines": map[string]any{"values": []any{int64(0), 0.5, int64(1)}},
				"protocol": map[string]any{"kittyCompress": false},
				"logging":  map[string]any{"level": "debug"},
			},
			nil,
		},
		{"unknown section", map[string]any{"editor": map[string]any{}}, []string{"editor"}},
		{"unknown key", map[string]any{"render": map[string]any{"fsp": int64(30)}}, []string{"render.fsp"}},
		{"type mismatch", map[string]any{"render": map[string]any{"fps": "fast"}}, []string{"render.fps"}},
		{"fractional integer", map[string]any{"dither": map[string]any{"bits": 2.5}}, []string{"dither.bits"}},
		{"range", map[string]any{"render": map[string]any{"fps": int64(0)}}, []string{"render.fps"}},
		{"array item", map[string]any{"isolines": map[string]any{"values": []any{0.5, 1.5}}}, []string{"isolines.values[1]"}},
		{"color", map[string]any{"render": map[string]any{"background": "red"}}, []string{"render.background"}},
		{"empty color", map[string]any{"render": map[string]any{"background": ""}}, nil},
		{"enum", map[string]any{"logging": map[string]any{"level": "loud"}}, []string{"logging.level"}},
		{"section type", map[string]any{"cache": []any{int64(1)}}, []string{"cache"}},
		{
			"several",
			map[string]any{
				"render": map[string]any{"scale": int64(0)},
				"cache":  map[string]any{"kitty": int64(0), "images": int64(0)},
			},
			[]string{"cache.images", "cache.kitty", "render.scale"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.data)
			if len(tt.paths) == 0 {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			var verrs *ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if verrs.Len() != len(tt.paths) {
				t.Fatalf("expected %d errors, got %v", len(tt.paths), verrs)
			}
			for i, p := range tt.paths {
				if verrs.Errors[i].Path != p {
					t.Errorf("expected path %q, got %q", p, verrs.Errors[i].Path)
				}
			}
		})
	}
}

func TestValidate_StrictMode(t *testing.T) {
	s, err := Parse([]byte(`{"type": "object", "properties": {"a": {"type": "integer"}}}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	data := map[string]any{"a": int64(1), "b": true}

	if err := NewValidator(s).Validate(data); err != nil {
		t.Errorf("expected lenient validation to pass, got %v", err)
	}
	if err := NewValidator(s).WithStrictMode(true).Validate(data); err == nil {
		t.Error("expected strict validation to reject b")
	}
}

func TestValidate_NilSchema(t *testing.T) {
	if err := NewValidator(nil).Validate(map[string]any{"x": 1}); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestValidationErrors_Message(t *testing.T) {
	errs := &ValidationErrors{}
	if errs.AsError() != nil {
		t.Error("expected nil for empty errors")
	}
	errs.Add("render.fps", "must be <= 240", 999)
	if got := errs.Error(); got != "render.fps: must be <= 240" {
		t.Errorf("unexpected message %q", got)
	}
	errs.Add("", "root problem", nil)
	if got := errs.Error(); !strings.HasPrefix(got, "2 validation errors:") || !strings.Contains(got, "\n  - root problem") {
		t.Errorf("unexpected message %q", got)
	}
}
