package http

import (
	stdhttp "net/http"
	"strings"
	"testing"

	"vsla-ledger/internal/domain/sysconfig"
)

func TestSettings_SetGetList(t *testing.T) {
	e := newServer(t)

	rec := do(t, e, stdhttp.MethodGet, "/settings/"+sysconfig.KeyQuorumPercent, nil)
	if rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("get unknown status = %d, want 404", rec.Code)
	}

	// empty table: every policy key falls back and is reported
	rec = do(t, e, stdhttp.MethodGet, "/settings", nil)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	listed := decode[struct {
		Settings []sysconfig.Setting `json:"settings"`
		Warnings []sysconfig.Warning `json:"warnings"`
	}](t, rec)
	if len(listed.Settings) != 0 || len(listed.Warnings) == 0 {
		t.Fatalf("empty table should list no rows and some warnings, got %+v", listed)
	}

	rec = do(t, e, stdhttp.MethodPut, "/settings/"+sysconfig.KeyQuorumPercent, map[string]any{
		"value_type": "INTEGER",
		"value":      "75",
		"updated_by": memberB,
	})
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("set status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, e, stdhttp.MethodGet, "/settings/"+sysconfig.KeyQuorumPercent, nil)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if s := decode[sysconfig.Setting](t, rec); s.RawValue != "75" || s.ValueType != sysconfig.TypeInteger {
		t.Fatalf("stored setting = %+v", s)
	}
}

func TestSettings_SetRejectsBadValues(t *testing.T) {
	e := newServer(t)
	path := "/settings/" + sysconfig.KeyQuorumPercent

	cases := []struct {
		name string
		body any
		want int
	}{
		{"unknown type", map[string]any{"value_type": "FLOAT", "value": "1"}, stdhttp.StatusUnprocessableEntity},
		{"bad updated_by", map[string]any{"value_type": "INTEGER", "value": "1", "updated_by": "x"}, stdhttp.StatusUnprocessableEntity},
		{"unparsable", map[string]any{"value_type": "INTEGER", "value": "sixty"}, stdhttp.StatusUnprocessableEntity},
		{"documented type mismatch", map[string]any{"value_type": "STRING", "value": "60"}, stdhttp.StatusUnprocessableEntity},
		{"broken json", strings.NewReader("{"), stdhttp.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, e, stdhttp.MethodPut, path, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d body=%s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}
