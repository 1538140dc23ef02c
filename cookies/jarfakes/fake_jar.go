package jarfakes

import (
	"sync"

	"github.com/datafab/collab-meet/cookies"
)

var _ cookies.Jar = (*FakeJar)(nil)

type entryKey struct {
	name   string
	domain string
}

// FakeJar models browser cookie storage closely enough to reproduce the
// domain-variant pitfalls: entries are keyed by (name, domain), so a
// deletion issued under one domain leaves a copy set under another
// untouched, and Get returns any surviving entry for the name.
type FakeJar struct {
	lock    sync.RWMutex
	entries map[entryKey]cookies.Cookie
}

func NewFakeJar() *FakeJar {
	return &FakeJar{entries: make(map[entryKey]cookies.Cookie)}
}

func (j *FakeJar) Get(name string) (string, bool) {
	j.lock.RLock()
	defer j.lock.RUnlock()

	for key, c := range j.entries {
		if key.name == name {
			return c.Value, true
		}
	}
	return "", false
}

func (j *FakeJar) Set(cookie cookies.Cookie) {
	j.lock.Lock()
	defer j.lock.Unlock()

	key := entryKey{name: cookie.Name, domain: cookie.Domain}
	if cookie.Expired() || cookie.MaxAge < 0 {
		delete(j.entries, key)
		return
	}
	j.entries[key] = cookie
}

// Entry returns the stored cookie for an exact (name, domain) pair.
func (j *FakeJar) Entry(name, domain string) (cookies.Cookie, bool) {
	j.lock.RLock()
	defer j.lock.RUnlock()

	c, ok := j.entries[entryKey{name: name, domain: domain}]
	return c, ok
}

// Domains lists every domain variant that still holds a cookie with name.
func (j *FakeJar) Domains(name string) []string {
	j.lock.RLock()
	defer j.lock.RUnlock()

	var domains []string
	for key := range j.entries {
		if key.name == name {
			domains = append(domains, key.domain)
		}
	}
	return domains
}
