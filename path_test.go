// ID validation and path layout tests.
package shelf

import (
	"errors"
	"testing"
)

func TestValidateIDAccepts(t *testing.T) {
	for _, id := range []string{"a", "a1", "a-1_2.3", "ABC123"} {
		if err := ValidateID(id); err != nil {
			t.Errorf("ValidateID(%q) = %v, want nil", id, err)
		}
	}
}

func TestValidateIDRejects(t *testing.T) {
	cases := []string{"", ".hidden", "a/b", "a..b", "..", "a b", "a/../b"}
	for _, id := range cases {
		if err := ValidateID(id); !errors.Is(err, ErrInvalidID) {
			t.Errorf("ValidateID(%q) = %v, want ErrInvalidID", id, err)
		}
	}
}

func TestPathBuildersNest(t *testing.T) {
	root := "/tmp/store"
	if got, want := collectionPath(root, "widgets"), "/tmp/store/collections/widgets"; got != want {
		t.Errorf("collectionPath = %q, want %q", got, want)
	}
	if got, want := dataLogPath(root, "widgets"), "/tmp/store/collections/widgets/meta/data.jsonl"; got != want {
		t.Errorf("dataLogPath = %q, want %q", got, want)
	}
	if got, want := lockFilePath(root), "/tmp/store/.shelf.lock"; got != want {
		t.Errorf("lockFilePath = %q, want %q", got, want)
	}
}
