package launch

import (
	"runtime"
	"sync"
)

// Replacement is one hand-off recorded by FakeReplacer.
type Replacement struct {
	Path string
	Argv []string
	Env  []string
}

// FakeReplacer is a test Replacer. It records each request and then either
// fails with Err or, when Err is nil, behaves like a successful exec by
// ending the calling goroutine so that no code after the call runs.
type FakeReplacer struct {
	Err error

	mu    sync.Mutex
	calls []Replacement
}

// Replace records the request. With a nil Err it does not return.
func (f *FakeReplacer) Replace(path string, argv []string, env []string) error {
	f.mu.Lock()
	f.calls = append(f.calls, Replacement{
		Path: path,
		Argv: append([]string(nil), argv...),
		Env:  append([]string(nil), env...),
	})
	err := f.Err
	f.mu.Unlock()

	if err != nil {
		return err
	}
	runtime.Goexit()
	return nil
}

// Calls returns the recorded replacements.
func (f *FakeReplacer) Calls() []Replacement {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Replacement(nil), f.calls...)
}

// Diverges runs fn on its own goroutine and reports whether fn ended without
// returning, as a successful FakeReplacer hand-off does.
func Diverges(fn func()) bool {
	returned := make(chan bool, 1)
	go func() {
		defer func() {
			select {
			case returned <- false:
			default:
			}
		}()
		fn()
		returned <- true
	}()
	return !<-returned
}
