package render

import (
	"strings"
	"testing"
	"time"

	"github.com/John-Robertt/submerge/internal/compiler"
	"github.com/John-Robertt/submerge/internal/document"
	"github.com/John-Robertt/submerge/internal/model"
)

const base = `mixed-port: 7890
proxies: []
proxy-groups:
  - name: PROXY
    type: select
    proxies: [DIRECT, old]
rules:
  - MATCH,PROXY
`

func TestAssemble_ReplacesNodesAndGroupsInPlace(t *testing.T) {
	doc, err := document.Parse(base)
	if err != nil {
		t.Fatalf("parse base: %v", err)
	}

	n := model.NewNode("ss")
	n.SetName("香港_1")
	n.Set(model.KeyServer, "hk.example.com")
	n.Set(model.KeyPort, 8388)
	n.Set("cipher", "aes-128-gcm")
	n.Set("password", "123")

	groups := compiler.Reconcile(doc.Groups, []string{"香港_1"})
	out, err := Assemble(doc, []*model.Node{n}, groups, Summary{
		GeneratedAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.FixedZone("CST", 8*3600)),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(out, "# generated at: 2024-05-01T00:00:00Z\n") {
		t.Fatalf("timestamp not in UTC:\n%s", out)
	}
	if !strings.Contains(out, `password: "123"`) {
		t.Fatalf("numeric-looking password should be quoted, got:\n%s", out)
	}
	body := out[strings.Index(out, "mixed-port"):]
	if !strings.HasPrefix(body, "mixed-port: 7890\nproxies:\n  - name: 香港_1\n") {
		t.Fatalf("nodes not placed at the proxies slot:\n%s", body)
	}
	if !strings.Contains(body, "proxies:\n      - DIRECT\n      - 香港_1\n") {
		t.Fatalf("groups not reconciled:\n%s", body)
	}
	if strings.Contains(body, "old") {
		t.Fatalf("stale member kept:\n%s", body)
	}
	if !strings.HasSuffix(body, "rules:\n  - MATCH,PROXY\n") {
		t.Fatalf("key order changed:\n%s", body)
	}

	again, err := document.Parse(out)
	if err != nil {
		t.Fatalf("output does not parse: %v", err)
	}
	if len(again.Nodes) != 1 || again.Nodes[0].Str("password") != "123" {
		t.Fatalf("round trip lost the node: %+v", again.Nodes)
	}

	members, _ := doc.Groups[0].Members()
	if len(members) != 2 || members[1] != "old" {
		t.Fatalf("base groups modified: %q", members)
	}
}

func TestAssemble_BaseWithoutGroupsGetsNone(t *testing.T) {
	doc, err := document.Parse("mode: rule\n")
	if err != nil {
		t.Fatalf("parse base: %v", err)
	}
	n := model.NewNode("trojan")
	n.SetName("a")
	out, err := Assemble(doc, []*model.Node{n}, []*model.Group{model.GroupFromFields(nil)}, Summary{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "proxy-groups") {
		t.Fatalf("unexpected groups:\n%s", out)
	}
}

func TestAssemble_NilBase(t *testing.T) {
	if _, err := Assemble(nil, nil, nil, Summary{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestHeader(t *testing.T) {
	got := Header(Summary{
		Stats: compiler.Stats{Original: 5, Invalid: 0, PostValidation: 5, PostDedup: 4, Duplicates: 1, PostFilter: 4},
		Criteria: compiler.Criteria{
			Name:      "hk|jp",
			ForceName: "IPLC",
			Server:    "domain",
		},
		Sources: []SourceLine{
			{Locator: "https://a.example/sub", Template: true},
			{Locator: "https://b.example/sub", Nodes: 3},
			{Locator: "https://c.example/sub", Err: "HTTP 503 Service Unavailable"},
			{Locator: "https://d.example/t", Template: true, Err: "HTTP 404 Not Found"},
		},
		GeneratedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	})

	want := "" +
		"# original: 5, invalid: 0, post-validation: 5, post-dedup: 4 (duplicates removed: 1), post-filter: 4\n" +
		"# name filter: hk|jp (forced: IPLC)\n" +
		"# type filter: none\n" +
		"# server filter: domain\n" +
		"# generated at: 2024-01-02T03:04:05Z\n" +
		"# sources:\n" +
		"# template(https://a.example/sub): loaded\n" +
		"# https://b.example/sub (3 nodes)\n" +
		"# https://c.example/sub (error: HTTP 503 Service Unavailable)\n" +
		"# template(https://d.example/t): error: HTTP 404 Not Found\n"
	if got != want {
		t.Fatalf("header mismatch\n got:\n%s\nwant:\n%s", got, want)
	}
}

func TestHeader_NewlinesCannotEscapeComments(t *testing.T) {
	got := Header(Summary{
		Criteria: compiler.Criteria{Name: "a\nevil: true"},
		Sources:  []SourceLine{{Locator: "x", Err: "bad\r\nline"}},
	})
	for _, line := range strings.Split(strings.TrimSuffix(got, "\n"), "\n") {
		if !strings.HasPrefix(line, "# ") {
			t.Fatalf("line escaped the comment block: %q", line)
		}
	}
}
