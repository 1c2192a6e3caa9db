package board

import "testing"

func TestParseColumn(t *testing.T) {
	tests := []struct {
		input   string
		want    Column
		wantErr bool
	}{
		{"todo", ColumnTodo, false},
		{"today", ColumnToday, false},
		{"done", ColumnDone, false},
		{"", "", true},
		{"Done", "", true},
		{"archive", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseColumn(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseColumn(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseColumn(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseColumn(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestColumn_Valid(t *testing.T) {
	for _, c := range Columns() {
		if !c.Valid() {
			t.Errorf("Column %q should be valid", c)
		}
	}
	if Column("later").Valid() {
		t.Error("Column \"later\" should not be valid")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		current Column
		target  Column
		want    Transition
	}{
		{"same column is a no-op", ColumnTodo, ColumnTodo, TransitionNone},
		{"done to done is a no-op", ColumnDone, ColumnDone, TransitionNone},
		{"todo to today is metadata", ColumnTodo, ColumnToday, TransitionMetadata},
		{"today to todo is metadata", ColumnToday, ColumnTodo, TransitionMetadata},
		{"todo to done completes", ColumnTodo, ColumnDone, TransitionComplete},
		{"today to done completes", ColumnToday, ColumnDone, TransitionComplete},
		{"done to todo uncompletes", ColumnDone, ColumnTodo, TransitionUncomplete},
		{"done to today uncompletes", ColumnDone, ColumnToday, TransitionUncomplete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.current, tt.target); got != tt.want {
				t.Errorf("Classify(%v, %v) = %v, want %v", tt.current, tt.target, got, tt.want)
			}
		})
	}
}

func TestClassify_Total(t *testing.T) {
	// Every column pair must classify to a defined transition.
	for _, from := range Columns() {
		for _, to := range Columns() {
			tr := Classify(from, to)
			if tr.String() == "unknown" {
				t.Errorf("Classify(%v, %v) returned an unknown transition", from, to)
			}
		}
	}
}
