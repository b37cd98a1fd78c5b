package svg

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	in := `<svg xmlns="http://www.w3.org/2000/svg" onload="alert(1)">` +
		`<script>alert(2)</script>` +
		`<a href="javascript:alert(3)"><rect onclick='x()' width="10"/></a>` +
		`<foreignObject><iframe src="x"></iframe></foreignObject>` +
		`</svg>`

	out, err := Sanitize([]byte(in))
	if err != nil {
		t.Fatalf("Sanitize() error: %v", err)
	}
	got := string(out)
	for _, banned := range []string{"onload", "<script", "javascript:", "onclick", "iframe"} {
		if strings.Contains(got, banned) {
			t.Errorf("sanitized output still contains %q: %s", banned, got)
		}
	}
	if !strings.Contains(got, `<rect width="10"/>`) {
		t.Errorf("sanitized output lost markup: %s", got)
	}
}

func TestSanitizeRejectsNonSVG(t *testing.T) {
	if _, err := Sanitize([]byte("<html></html>")); !errors.Is(err, ErrNotSVG) {
		t.Fatalf("Sanitize() error = %v, want ErrNotSVG", err)
	}
}
