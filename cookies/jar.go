package cookies

import (
	"net/http"
	"time"
)

// Cookie is the subset of cookie attributes this front end writes.
type Cookie struct {
	Name     string
	Value    string
	Domain   string // empty means "omit the attribute"
	Path     string
	SameSite http.SameSite
	Secure   bool
	MaxAge   int
	Expires  time.Time
}

// Expired reports whether the cookie is a deletion marker.
func (c Cookie) Expired() bool {
	return !c.Expires.IsZero() && c.Expires.Before(time.Now())
}

// Jar abstracts the cookie surface the Store writes through. In
// production it is backed by the HTTP request/response pair; tests use a
// browser-modelling in-memory jar that keeps distinct entries per
// domain variant, which is exactly the behaviour that makes half-done
// sign-out purges leave stale sessions behind.
type Jar interface {
	Get(name string) (string, bool)
	Set(cookie Cookie)
}

// httpJar reads cookies from an incoming request and writes Set-Cookie
// headers on the response.
type httpJar struct {
	r       *http.Request
	w       http.ResponseWriter
	deleted map[string]bool
}

// NewHTTPJar returns a Jar over a request/response pair.
func NewHTTPJar(w http.ResponseWriter, r *http.Request) Jar {
	return &httpJar{r: r, w: w, deleted: make(map[string]bool)}
}

func (j *httpJar) Get(name string) (string, bool) {
	// The request header predates any deletion issued on this response,
	// so deletions issued this turn shadow it.
	if j.deleted[name] {
		return "", false
	}
	c, err := j.r.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}

func (j *httpJar) Set(cookie Cookie) {
	if cookie.Expired() {
		j.deleted[cookie.Name] = true
	} else {
		delete(j.deleted, cookie.Name)
	}
	http.SetCookie(j.w, &http.Cookie{
		Name:     cookie.Name,
		Value:    cookie.Value,
		Domain:   cookie.Domain,
		Path:     cookie.Path,
		SameSite: cookie.SameSite,
		Secure:   cookie.Secure,
		MaxAge:   cookie.MaxAge,
		Expires:  cookie.Expires,
	})
}
