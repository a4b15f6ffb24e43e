package handlers

import "net/http"

const greetingHTML = "<h1>HELLO</h1>"

// Home serves the static greeting page on GET /
func Home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(greetingHTML))
}
