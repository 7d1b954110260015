package appointments

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFacilityWhereServiceArgIsValidJSON(t *testing.T) {
	for _, service := range []string{
		"home_collection",
		`visit"lab`,
		`a]},{"x":"b`,
	} {
		where, args := facilityWhere(FacilityFilters{Service: service})
		if !strings.Contains(where, "services_offered @> $1") {
			t.Fatalf("service clause missing: %q", where)
		}
		if len(args) != 1 {
			t.Fatalf("expected 1 arg, got %d", len(args))
		}
		raw, ok := args[0].(string)
		if !ok || !json.Valid([]byte(raw)) {
			t.Fatalf("service %q produced invalid jsonb arg: %v", service, args[0])
		}
		var decoded []string
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			t.Fatalf("service %q: %v", service, err)
		}
		if len(decoded) != 1 || decoded[0] != service {
			t.Fatalf("service %q round-tripped as %v", service, decoded)
		}
	}
}
