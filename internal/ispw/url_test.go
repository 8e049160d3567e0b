package ispw

import (
	"strings"
	"testing"

	"github.com/mainframe-ci/ispw-generate/pkg/types"
)

func testParams() *types.BuildParams {
	return &types.BuildParams{
		ContainerID: "PLAY000001",
		ReleaseID:   "REL001",
		TaskLevel:   "DEV1",
		TaskIDs:     []string{"7E45E3087494", "7E45E3087495"},
	}
}

func TestAssembleRequestURLNormalizesBase(t *testing.T) {
	want := "https://ces.example.com:2020/ispw/cw09-47623/assignments/PLAY000001/taskIds/generate-await?taskId=7E45E3087494&taskId=7E45E3087495&level=DEV1"

	bases := []string{
		"https://ces.example.com:2020",
		"https://ces.example.com:2020/",
		"https://ces.example.com:2020/compuware",
		"https://ces.example.com:2020/compuware/",
		"https://ces.example.com:2020/Compuware",
		"https://ces.example.com:2020/COMPUWARE",
		"https://ces.example.com:2020/ispw",
		"https://ces.example.com:2020/ISPW/",
		"https://ces.example.com:2020/compuware/ispw",
		"https://ces.example.com:2020/compuware/ispw/",
	}

	for _, base := range bases {
		u, err := AssembleRequestURL(base, "cw09-47623", testParams())
		if err != nil {
			t.Fatalf("AssembleRequestURL(%q) failed: %v", base, err)
		}
		if got := u.String(); got != want {
			t.Errorf("AssembleRequestURL(%q) = %q, want %q", base, got, want)
		}
	}
}

func TestAssembleRequestURLTaskOrder(t *testing.T) {
	params := testParams()
	params.TaskIDs = []string{"C", "A", "B"}

	u, err := AssembleRequestURL("https://ces.example.com", "srid1", params)
	if err != nil {
		t.Fatalf("AssembleRequestURL failed: %v", err)
	}

	wantQuery := "taskId=C&taskId=A&taskId=B&level=DEV1"
	if u.RawQuery != wantQuery {
		t.Errorf("RawQuery = %q, want %q", u.RawQuery, wantQuery)
	}
}

func TestAssembleRequestURLTrailingAmpersand(t *testing.T) {
	params := testParams()
	params.TaskIDs = []string{"ONLY1"}

	u, err := AssembleRequestURL("https://ces.example.com", "srid1", params)
	if err != nil {
		t.Fatalf("AssembleRequestURL failed: %v", err)
	}

	// The remote service tolerates (and gets) a literal "&" between the last
	// taskId and the level parameter.
	if !strings.Contains(u.String(), "taskId=ONLY1&level=DEV1") {
		t.Errorf("URL %q missing trailing ampersand before level", u.String())
	}
}

func TestAssembleRequestURLSingleTrailingSlash(t *testing.T) {
	u, err := AssembleRequestURL("https://ces.example.com//", "srid1", testParams())
	if err != nil {
		t.Fatalf("AssembleRequestURL failed: %v", err)
	}
	// Exactly one trailing slash is stripped.
	if !strings.HasPrefix(u.String(), "https://ces.example.com//ispw/") {
		t.Errorf("unexpected URL: %q", u.String())
	}
}

func TestAssembleRequestURLMalformed(t *testing.T) {
	_, err := AssembleRequestURL("https://ces.example.com/\x7f", "srid1", testParams())
	if err == nil {
		t.Fatal("expected error for malformed URL")
	}
	if KindOf(err) != ErrKindMalformedURL {
		t.Errorf("error kind = %q, want %q", KindOf(err), ErrKindMalformedURL)
	}
}
