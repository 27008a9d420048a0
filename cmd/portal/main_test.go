package main

import "testing"

func TestRootCommandWiresStubAndFlags(t *testing.T) {
	root := rootCmd()
	stub, _, err := root.Find([]string{"stub"})
	if err != nil || stub.Name() != "stub" {
		t.Fatalf("stub subcommand missing: %v", err)
	}
	for _, name := range []string{"dir", "borrower-url", "underwriter-url", "letter-url"} {
		if root.Flags().Lookup(name) == nil {
			t.Fatalf("root flag --%s missing", name)
		}
	}
	if seed := stub.Flags().Lookup("seed"); seed == nil || seed.DefValue != "true" {
		t.Fatalf("stub --seed should default to true")
	}
}

func TestResolveDirPrefersFlag(t *testing.T) {
	dir := t.TempDir()
	got, err := resolveDir(dir)
	if err != nil || got != dir {
		t.Fatalf("resolveDir = %q, %v", got, err)
	}
}
