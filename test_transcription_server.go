package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"
)

// Development stub for the http engine. Accepts chunk uploads and returns a
// canned transcription so a full session can run without a real
// speech-to-text backend.

type transcribeResponse struct {
	Text        string    `json:"text"`
	Language    string    `json:"language"`
	ProcessedAt time.Time `json:"processed_at"`
}

func transcribeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	language := r.FormValue("language")
	responseFormat := r.FormValue("response_format")

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	log.Printf("TRANSCRIPTION REQUEST:")
	log.Printf("  Filename: %s", header.Filename)
	log.Printf("  Audio Size: %d bytes", len(audioData))
	log.Printf("  Content-Type: %s", header.Header.Get("Content-Type"))
	log.Printf("  Language: %s", language)
	log.Printf("  Response Format: %s", responseFormat)

	// Simulate processing time
	time.Sleep(200 * time.Millisecond)

	response := transcribeResponse{
		Text:        "This is a stub transcription of the uploaded chunk.",
		Language:    "en",
		ProcessedAt: time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)

	log.Printf("TRANSCRIPTION RESPONSE SENT: '%s'", response.Text)
	log.Println("---")
}

func main() {
	http.HandleFunc("/transcribe", transcribeHandler)

	port := ":9000"
	log.Printf("Stub transcription server starting on port %s", port)
	log.Printf("Endpoint: http://localhost%s/transcribe", port)
	log.Println("Set engine type to 'http' with endpoint http://localhost:9000/transcribe")

	if err := http.ListenAndServe(port, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
