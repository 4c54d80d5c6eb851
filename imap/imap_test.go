package imap

import (
	"testing"
)

func TestBatches(t *testing.T) {
	tests := []struct {
		name  string
		total uint32
		size  uint32
		want  []string
	}{
		{name: "empty folder", total: 0, size: 100, want: nil},
		{name: "single batch", total: 5, size: 100, want: []string{"1:5"}},
		{name: "exact multiple", total: 4, size: 2, want: []string{"1:2", "3:4"}},
		{name: "remainder", total: 5, size: 2, want: []string{"1:2", "3:4", "5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := batches(tt.total, tt.size)
			if len(got) != len(tt.want) {
				t.Fatalf("batches() = %v, want %v", got, tt.want)
			}
			for i, set := range got {
				if set.String() != tt.want[i] {
					t.Errorf("batch %d = %q, want %q", i, set.String(), tt.want[i])
				}
			}
		})
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{name: "valid", opts: Options{Host: "mail.example.com", Port: 993, Username: "me"}},
		{name: "missing host", opts: Options{Port: 993, Username: "me"}, wantErr: true},
		{name: "bad port", opts: Options{Host: "h", Username: "me"}, wantErr: true},
		{name: "missing user", opts: Options{Host: "h", Port: 143}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.validate(); (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOptionsFolderDefault(t *testing.T) {
	if got := (Options{}).folder(); got != "INBOX" {
		t.Errorf("folder() = %q, want INBOX", got)
	}
	if got := (Options{Folder: "Archive"}).folder(); got != "Archive" {
		t.Errorf("folder() = %q, want Archive", got)
	}
}
