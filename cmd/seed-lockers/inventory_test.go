package main

import "testing"

const sample = `
- floor: 2
  location: 2F east
  from: 2001
  to: 2004
  out_of_work: [2003]
- floor: 3
  location: 3F west
  from: 3100
  to: 3101
`

func TestExpandInventory(t *testing.T) {
	blocks, err := parseInventory([]byte(sample))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rows, err := expand(blocks)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("expected 6 lockers, got %d", len(rows))
	}
	if rows[2].LockerID != "2003" || rows[2].Status != "out-of-work" {
		t.Errorf("unexpected row %+v", rows[2])
	}
	if rows[4].LockerID != "3100" || rows[4].Location != "3F west" || rows[4].Status != "vacant" {
		t.Errorf("unexpected row %+v", rows[4])
	}
}

func TestExpandRejectsBadBlocks(t *testing.T) {
	tests := []struct {
		name   string
		blocks []block
	}{
		{"range off floor", []block{{Floor: 2, From: 3001, To: 3002}}},
		{"reversed range", []block{{Floor: 2, From: 2010, To: 2001}}},
		{"out of work outside range", []block{{Floor: 2, From: 2001, To: 2002, OutOfWork: []int{2005}}}},
		{"duplicate ids", []block{{Floor: 2, From: 2001, To: 2002}, {Floor: 2, From: 2002, To: 2003}}},
		{"bad floor", []block{{Floor: 0, From: 1, To: 2}}},
		{"floor above campus range", []block{{Floor: 7, From: 7001, To: 7002}}},
		{"floor below campus range", []block{{Floor: 1, From: 1001, To: 1002}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := expand(tt.blocks); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseInventoryRejectsEmpty(t *testing.T) {
	if _, err := parseInventory([]byte("[]")); err == nil {
		t.Error("expected error for empty inventory")
	}
}
