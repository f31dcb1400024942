package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// LastModifiedVersionHeader carries the library watermark on every response.
const LastModifiedVersionHeader = "Last-Modified-Version"

// WriteJSON serializes data to JSON and writes it to the HTTP response
// together with the library version header.
//
// If marshaling fails, it responds with 500 Internal Server Error
// and returns a wrapped error.
//
// Example usage:
//
//	WriteJSON(w, map[string]int64{"AAAAAAAA": 3}, http.StatusOK, 3)
func WriteJSON(w http.ResponseWriter, data any, statusCode int, version int64) (int, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "error writing data to JSON", http.StatusInternalServerError)
		return 0, fmt.Errorf("error writing data to JSON: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(LastModifiedVersionHeader, strconv.FormatInt(version, 10))
	w.WriteHeader(statusCode)

	return w.Write(jsonData)
}

// WriteVersion writes an empty response carrying only the version header.
func WriteVersion(w http.ResponseWriter, statusCode int, version int64) {
	w.Header().Set(LastModifiedVersionHeader, strconv.FormatInt(version, 10))
	w.WriteHeader(statusCode)
}
