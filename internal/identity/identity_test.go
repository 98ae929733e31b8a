package identity

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"gripid001", "GRIPID001"},
		{"  GripID001 \t", "GRIPID001"},
		{"GRIPID001", "GRIPID001"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := Normalize(tt.input); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestClassifyModel(t *testing.T) {
	tests := []struct {
		name   string
		serial string
		want   ModelTag
		wantOK bool
	}{
		{name: "v6 marker", serial: "GRIPIDV6-0012", want: ModelV6, wantOK: true},
		{name: "lower case v6", serial: "gripidv6-0012", want: ModelV6, wantOK: true},
		{name: "fap20 marker", serial: "GRIPID-FAP20-77", want: ModelFAP20, wantOK: true},
		{name: "mixed case fap20", serial: "gripid-Fap20-77", want: ModelFAP20, wantOK: true},
		{name: "fap20 wins over v6", serial: "GRIPIDV6FAP20", want: ModelFAP20, wantOK: true},
		{name: "no marker", serial: "GRIPID100", wantOK: false},
		{name: "empty", serial: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClassifyModel(tt.serial)
			if ok != tt.wantOK {
				t.Fatalf("ClassifyModel(%q) ok = %v, want %v", tt.serial, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ClassifyModel(%q) = %q, want %q", tt.serial, got, tt.want)
			}
		})
	}
}

func TestSameSerial(t *testing.T) {
	if !SameSerial("gripid001", " GRIPID001") {
		t.Error("SameSerial should ignore case and whitespace")
	}
	if SameSerial("", "") {
		t.Error("empty serials must never match")
	}
	if SameSerial("GRIPID001", "GRIPID002") {
		t.Error("different serials matched")
	}
}

func TestClassifyToken(t *testing.T) {
	tests := []struct {
		raw      string
		wantKind TokenKind
		want     string
	}{
		{" gripid123 ", TokenSerial, "GRIPID123"},
		{"356938035643809", TokenIMEI, "356938035643809"},
		{"35693803564380", TokenUnknown, "35693803564380"},
		{"35693803564380A", TokenUnknown, "35693803564380A"},
		{"https://example.com", TokenUnknown, "HTTPS://EXAMPLE.COM"},
		{"", TokenUnknown, ""},
	}

	for _, tt := range tests {
		got := ClassifyToken(tt.raw)
		if got.Kind != tt.wantKind || got.Value != tt.want {
			t.Errorf("ClassifyToken(%q) = %+v, want {%s %s}", tt.raw, got, tt.wantKind, tt.want)
		}
	}
}

func TestFillScan(t *testing.T) {
	form := ScanForm{}

	form, _ = FillScan(form, "gripid100")
	if form.Serial != "GRIPID100" {
		t.Fatalf("Serial = %q, want GRIPID100", form.Serial)
	}

	form, _ = FillScan(form, "111111111111111")
	if form.IMEI1 != "111111111111111" || form.IMEI2 != "" {
		t.Fatalf("after first IMEI: %+v", form)
	}

	// Re-scanning the same IMEI must not copy it into the second slot.
	form, _ = FillScan(form, "111111111111111")
	if form.IMEI2 != "" {
		t.Fatalf("repeated IMEI filled IMEI2: %+v", form)
	}

	form, _ = FillScan(form, "222222222222222")
	if form.IMEI2 != "222222222222222" {
		t.Fatalf("IMEI2 = %q, want 222222222222222", form.IMEI2)
	}

	before := form
	form, tok := FillScan(form, "not-a-label")
	if tok.Kind != TokenUnknown || form != before {
		t.Errorf("unknown token changed form: %+v", form)
	}
}
