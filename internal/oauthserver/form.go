package oauthserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// formValues is a minimal key-value accessor that hides whether the
// request body was JSON or application/x-www-form-urlencoded.
type formValues map[string]string

func (f formValues) Get(key string) string { return f[key] }

// parseTokenRequestBody accepts both encodings the specification requires
// for POST /oauth/token.
func parseTokenRequestBody(r *http.Request) (formValues, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.Contains(contentType, "application/json") {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
		var raw map[string]string
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("decoding JSON body: %w", err)
		}
		return formValues(raw), nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("parsing form body: %w", err)
	}
	values := make(formValues, len(r.PostForm))
	for key := range r.PostForm {
		values[key] = r.PostForm.Get(key)
	}
	return values, nil
}
