package validation

import "testing"

func TestValidator_Check(t *testing.T) {
	v := NewValidator(1024)

	tests := []struct {
		name       string
		fileName   string
		mimeType   string
		size       int64
		wantReason RejectReason // empty means accepted
	}{
		{
			name:     "csv by mime type",
			fileName: "transactions.csv",
			mimeType: "text/csv",
			size:     100,
		},
		{
			name:     "xlsx by mime type",
			fileName: "ledger.xlsx",
			mimeType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			size:     100,
		},
		{
			name:     "xls by mime type",
			fileName: "ledger.xls",
			mimeType: "application/vnd.ms-excel",
			size:     100,
		},
		{
			name:     "extension fallback for octet-stream",
			fileName: "export.xlsx",
			mimeType: "application/octet-stream",
			size:     100,
		},
		{
			name:     "extension fallback for empty mime",
			fileName: "export.csv",
			mimeType: "",
			size:     100,
		},
		{
			name:     "case-insensitive extension",
			fileName: "EXPORT.CSV",
			mimeType: "",
			size:     100,
		},
		{
			name:     "mime with charset parameter",
			fileName: "data.csv",
			mimeType: "text/csv; charset=utf-8",
			size:     100,
		},
		{
			name:     "whitelisted extension despite odd mime",
			fileName: "data.csv",
			mimeType: "text/plain",
			size:     100,
		},
		{
			name:       "pdf rejected",
			fileName:   "d.pdf",
			mimeType:   "application/pdf",
			size:       100,
			wantReason: ReasonType,
		},
		{
			name:       "no extension and generic mime rejected",
			fileName:   "mystery",
			mimeType:   "application/octet-stream",
			size:       100,
			wantReason: ReasonType,
		},
		{
			name:       "oversize rejected",
			fileName:   "big.csv",
			mimeType:   "text/csv",
			size:       2048,
			wantReason: ReasonSize,
		},
		{
			name:     "exactly at limit accepted",
			fileName: "edge.csv",
			mimeType: "text/csv",
			size:     1024,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rej := v.Check(tt.fileName, tt.mimeType, tt.size)
			if tt.wantReason == "" {
				if rej != nil {
					t.Errorf("expected accepted, got rejection %q (%s)", rej.Reason, rej.Message)
				}
				return
			}
			if rej == nil {
				t.Fatalf("expected rejection %q, got accepted", tt.wantReason)
			}
			if rej.Reason != tt.wantReason {
				t.Errorf("expected reason %q, got %q", tt.wantReason, rej.Reason)
			}
			if rej.FileName != tt.fileName {
				t.Errorf("expected fileName %q, got %q", tt.fileName, rej.FileName)
			}
			if rej.Message == "" {
				t.Error("expected a non-empty rejection message")
			}
		})
	}
}

func TestCapacityRejection(t *testing.T) {
	rej := CapacityRejection("c.csv", 1)
	if rej.Reason != ReasonCapacity {
		t.Errorf("expected capacity reason, got %q", rej.Reason)
	}
	if rej.FileName != "c.csv" {
		t.Errorf("expected fileName c.csv, got %q", rej.FileName)
	}
}
