package kv

import (
	"path/filepath"
	"slices"
	"testing"
)

// implementations lists every Store implementation under test.
func implementations(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	return map[string]func(t *testing.T) Store{
		"bolt": func(t *testing.T) Store {
			s, err := OpenBolt(filepath.Join(t.TempDir(), "store.db"))
			if err != nil {
				t.Fatalf("OpenBolt failed: %v", err)
			}
			t.Cleanup(func() {
				_ = s.Close()
			})
			return s
		},
		"memory": func(t *testing.T) Store {
			return NewMemory()
		},
	}
}

func TestStore(t *testing.T) {
	for name, open := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("PutGetDelete", func(t *testing.T) {
				s := open(t)
				p, err := s.Partition("data")
				if err != nil {
					t.Fatal(err)
				}
				if _, found, err := p.Get([]byte("k")); err != nil || found {
					t.Fatalf("Get on empty partition = found %t, err %v", found, err)
				}
				if err := p.Put([]byte("k"), []byte("v1")); err != nil {
					t.Fatal(err)
				}
				if v, found, err := p.Get([]byte("k")); err != nil || !found || string(v) != "v1" {
					t.Fatalf("Get = %q, %t, %v", v, found, err)
				}
				if err := p.Put([]byte("k"), []byte("v2")); err != nil {
					t.Fatal(err)
				}
				if v, _, _ := p.Get([]byte("k")); string(v) != "v2" {
					t.Fatalf("Get after overwrite = %q, want v2", v)
				}
				if err := p.Delete([]byte("k")); err != nil {
					t.Fatal(err)
				}
				if _, found, _ := p.Get([]byte("k")); found {
					t.Fatal("Get after Delete still found the record")
				}
			})

			t.Run("DeleteAbsent", func(t *testing.T) {
				s := open(t)
				p, err := s.Partition("data")
				if err != nil {
					t.Fatal(err)
				}
				if err := p.Delete([]byte("never-stored")); err != nil {
					t.Fatalf("Delete of absent key errored: %v", err)
				}
			})

			t.Run("ForEach", func(t *testing.T) {
				s := open(t)
				p, err := s.Partition("data")
				if err != nil {
					t.Fatal(err)
				}
				want := map[string]string{"a": "1", "b": "2", "c": "3"}
				for k, v := range want {
					if err := p.Put([]byte(k), []byte(v)); err != nil {
						t.Fatal(err)
					}
				}
				got := map[string]string{}
				err = p.ForEach(func(key, value []byte) error {
					got[string(key)] = string(value)
					return nil
				})
				if err != nil {
					t.Fatal(err)
				}
				if len(got) != len(want) {
					t.Fatalf("ForEach visited %d records, want %d", len(got), len(want))
				}
				for k, v := range want {
					if got[k] != v {
						t.Errorf("record %q = %q, want %q", k, got[k], v)
					}
				}
			})

			t.Run("PartitionsIndependent", func(t *testing.T) {
				s := open(t)
				p1, err := s.Partition("one")
				if err != nil {
					t.Fatal(err)
				}
				p2, err := s.Partition("two")
				if err != nil {
					t.Fatal(err)
				}
				if err := p1.Put([]byte("k"), []byte("v")); err != nil {
					t.Fatal(err)
				}
				if _, found, _ := p2.Get([]byte("k")); found {
					t.Fatal("record written to partition one visible in partition two")
				}
			})

			t.Run("Partitions", func(t *testing.T) {
				s := open(t)
				for _, name := range []string{"b", "a"} {
					if _, err := s.Partition(name); err != nil {
						t.Fatal(err)
					}
				}
				names, err := s.Partitions()
				if err != nil {
					t.Fatal(err)
				}
				if !slices.Equal(names, []string{"a", "b"}) {
					t.Fatalf("Partitions() = %v, want [a b]", names)
				}
			})

			t.Run("EmptyName", func(t *testing.T) {
				s := open(t)
				if _, err := s.Partition(""); err == nil {
					t.Fatal("Partition(\"\") did not error")
				}
			})
		})
	}
}

func TestBoltReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	s, err := OpenBolt(path)
	if err != nil {
		t.Fatal(err)
	}
	p, err := s.Partition("data")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = OpenBolt(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = s.Close()
	}()
	p, err = s.Partition("data")
	if err != nil {
		t.Fatal(err)
	}
	if v, found, err := p.Get([]byte("k")); err != nil || !found || string(v) != "v" {
		t.Fatalf("Get after reopen = %q, %t, %v", v, found, err)
	}
}

func TestBoltCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "store.db")
	s, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("OpenBolt with missing parent directories failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}
