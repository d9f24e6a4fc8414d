package webhook

import "testing"

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   Notification
		wantOK bool
	}{
		{
			name:   "top level",
			body:   `{"reference_id":"ORD-1","status":"PAID"}`,
			want:   Notification{ReferenceID: "ORD-1", Status: "PAID"},
			wantOK: true,
		},
		{
			name:   "nested data",
			body:   `{"event":"qr.payment","data":{"reference_id":"ORD-2","status":"SUCCEEDED","qr_id":"qr_1"}}`,
			want:   Notification{ReferenceID: "ORD-2", Status: "SUCCEEDED"},
			wantOK: true,
		},
		{
			name:   "external id fallback",
			body:   `{"external_id":"INV-9","status":"EXPIRED"}`,
			want:   Notification{ReferenceID: "INV-9", Status: "EXPIRED"},
			wantOK: true,
		},
		{
			name:   "top level wins over data",
			body:   `{"reference_id":"A","status":"PAID","data":{"reference_id":"B","status":"FAILED"}}`,
			want:   Notification{ReferenceID: "A", Status: "PAID"},
			wantOK: true,
		},
		{
			name:   "data reference before external id",
			body:   `{"external_id":"X","data":{"reference_id":"Y"}}`,
			want:   Notification{ReferenceID: "Y"},
			wantOK: true,
		},
		{
			name:   "no reference",
			body:   `{"status":"PAID","data":{"status":"PAID"}}`,
			want:   Notification{Status: "PAID"},
			wantOK: false,
		},
		{
			name:   "wrong types ignored",
			body:   `{"reference_id":true,"data":"nope","status":true}`,
			wantOK: false,
		},
		{
			name:   "numeric reference",
			body:   `{"reference_id":12345,"status":"PAID"}`,
			want:   Notification{ReferenceID: "12345", Status: "PAID"},
			wantOK: true,
		},
		{
			name:   "numeric nested reference beats external id",
			body:   `{"external_id":"INV-1","data":{"reference_id":7.5}}`,
			want:   Notification{ReferenceID: "7.5"},
			wantOK: true,
		},
		{
			name:   "zero reference falls back",
			body:   `{"reference_id":0,"external_id":"INV-2"}`,
			want:   Notification{ReferenceID: "INV-2"},
			wantOK: true,
		},
		{
			name:   "not an object",
			body:   `["ORD-1"]`,
			wantOK: false,
		},
		{
			name:   "garbage",
			body:   `not json`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(Decode([]byte(tt.body)))
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestValidToken(t *testing.T) {
	if !ValidToken("secret-token", "secret-token") {
		t.Fatal("expected match")
	}
	if ValidToken("secret-token ", "secret-token") {
		t.Fatal("comparison must be exact")
	}
	if ValidToken("", "secret-token") {
		t.Fatal("missing token must fail")
	}
	if ValidToken("anything", "") {
		t.Fatal("unconfigured token must reject")
	}
}
