package compiler

import (
	"errors"
	"testing"

	"github.com/John-Robertt/submerge/internal/model"
)

func ss(name, server string, port any, password string) *model.Node {
	n := model.NewNode("ss")
	n.SetName(name)
	n.Set(model.KeyServer, server)
	n.Set(model.KeyPort, port)
	n.Set("cipher", "aes-128-gcm")
	n.Set("password", password)
	return n
}

func group(name, typ string, members ...string) *model.Group {
	f := model.NewFields()
	f.Set(model.KeyName, name)
	f.Set(model.KeyType, typ)
	if members != nil {
		f.Set(model.KeyMembers, members)
	}
	return model.GroupFromFields(f)
}

func TestCompile_Stats(t *testing.T) {
	nodes := []*model.Node{
		ss("香港 01", "hk1.example.com", 8388, "pw"),
		ss("香港 01 copy", "hk1.example.com", "8388", "other"), // same server:port:cipher
		ss("日本 01", "jp1.example.com", 443, "pw"),
		ss("broken", "jp2.example.com", 443, ""), // no password
		ss("US 01", "us1.example.com", 0, "pw"),  // bad port
	}
	groups := []*model.Group{group("PROXY", "select", "DIRECT", "香港 01", "日本 01")}

	got, err := Compile(nodes, groups, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Stats{Original: 5, Invalid: 2, PostValidation: 3, PostDedup: 2, Duplicates: 1, PostFilter: 2}
	if got.Stats != want {
		t.Fatalf("stats=%+v, want=%+v", got.Stats, want)
	}
	if len(got.Rejected) != 2 {
		t.Fatalf("rejected=%d, want=2", len(got.Rejected))
	}

	names := model.NodeNames(got.Nodes)
	if len(names) != 2 || names[0] != "日本_1" || names[1] != "香港_1" {
		t.Fatalf("names=%q", names)
	}
	members, _ := got.Groups[0].Members()
	if len(members) != 3 || members[0] != "DIRECT" || members[1] != "日本_1" || members[2] != "香港_1" {
		t.Fatalf("members=%q", members)
	}
}

func TestCompile_MissingCredentialCountsAsInvalid(t *testing.T) {
	base := []*model.Node{
		ss("a", "a.example.com", 1, "pw"),
		ss("b", "b.example.com", 2, "pw"),
	}
	before, err := Compile(model.CloneNodes(base), nil, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vm := model.NewNode("vmess")
	vm.SetName("c")
	vm.Set(model.KeyServer, "c.example.com")
	vm.Set(model.KeyPort, 443)
	after, err := Compile(append(model.CloneNodes(base), vm), nil, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if after.Stats.Original != before.Stats.Original+1 {
		t.Fatalf("original=%d, want=%d", after.Stats.Original, before.Stats.Original+1)
	}
	if after.Stats.Invalid != before.Stats.Invalid+1 {
		t.Fatalf("invalid=%d, want=%d", after.Stats.Invalid, before.Stats.Invalid+1)
	}
	if after.Stats.PostValidation != before.Stats.PostValidation {
		t.Fatalf("post-validation=%d, want=%d", after.Stats.PostValidation, before.Stats.PostValidation)
	}
	if got := after.Rejected[0].Err.AppError.Code; got != "NODE_MISSING_CREDENTIAL" {
		t.Fatalf("code=%q", got)
	}
}

func TestCompile_FilterLeavesNothing(t *testing.T) {
	nodes := []*model.Node{ss("香港 01", "hk.example.com", 1, "pw")}
	_, err := Compile(nodes, nil, Options{Criteria: Criteria{Name: "日本"}})

	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CompileError, got %T: %v", err, err)
	}
	if ce.AppError.Code != "NO_MATCHING_NODES" || ce.AppError.Stage != "compile" {
		t.Fatalf("app error=%+v", ce.AppError)
	}
}

func TestCompile_NoValidNodes(t *testing.T) {
	_, err := Compile([]*model.Node{ss("x", "", 1, "pw")}, nil, Options{})

	var ce *CompileError
	if !errors.As(err, &ce) || ce.AppError.Code != "NO_VALID_NODES" {
		t.Fatalf("err=%v", err)
	}
}

func TestCompile_FilterThenRenameByCondition(t *testing.T) {
	nodes := []*model.Node{
		ss("Hong Kong A", "a.example.com", 1, "pw"),
		ss("Tokyo JP", "b.example.com", 2, "pw"),
		ss("HK B", "c.example.com", 3, "pw"),
		ss("Singapore", "d.example.com", 4, "pw"),
	}
	got, err := Compile(nodes, nil, Options{Criteria: Criteria{Name: "hk|jp"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names := model.NodeNames(got.Nodes)
	want := []string{"香港_1", "日本_1", "香港_2"}
	if len(names) != len(want) {
		t.Fatalf("names=%q, want=%q", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names=%q, want=%q", names, want)
		}
	}
}
