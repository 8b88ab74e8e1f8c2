// Seeds the therapist directory through the admin API. Each entry is created,
// verified, and given its availability slots so instant matching has a pool
// to work with in local development.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Slot struct {
	DayOfWeek   *int   `json:"day_of_week,omitempty"`
	TimeLocal   string `json:"time_local"`
	Format      string `json:"format"`
	Kind        string `json:"kind"`
	IsRecurring bool   `json:"is_recurring"`
}

type Therapist struct {
	Name               string         `json:"name"`
	Email              string         `json:"email"`
	Gender             string         `json:"gender"`
	City               string         `json:"city"`
	SessionPreferences []string       `json:"session_preferences"`
	Modalities         []string       `json:"modalities"`
	Profile            map[string]any `json:"profile"`
	Slots              []Slot         `json:"-"`
}

func day(d int) *int { return &d }

var directory = []Therapist{
	{
		Name: "Dr. Anna Weber", Email: "anna.weber@example.com",
		Gender: "female", City: "Berlin",
		SessionPreferences: []string{"online", "in_person"},
		Modalities:         []string{"NARM", "Somatic Experiencing"},
		Profile: map[string]any{
			"photo_url":        "https://example.com/anna.jpg",
			"about":            "Traumatherapeutin mit Schwerpunkt Entwicklungstrauma.",
			"approach":         "NARM und körperorientierte Verfahren.",
			"qualifications":   "Heilpraktikerin für Psychotherapie",
			"years_experience": 8,
		},
		Slots: []Slot{
			{DayOfWeek: day(1), TimeLocal: "09:00", Format: "online", Kind: "intro", IsRecurring: true},
			{DayOfWeek: day(3), TimeLocal: "14:00", Format: "in_person", Kind: "full", IsRecurring: true},
		},
	},
	{
		Name: "Dr. Jonas Becker", Email: "jonas.becker@example.com",
		Gender: "male", City: "Berlin",
		SessionPreferences: []string{"online"},
		Modalities:         []string{"CBT", "Schematherapie"},
		Profile: map[string]any{
			"about":            "Verhaltenstherapeut, Online-Praxis.",
			"years_experience": 12,
		},
		Slots: []Slot{
			{DayOfWeek: day(2), TimeLocal: "18:00", Format: "online", Kind: "full", IsRecurring: true},
		},
	},
	{
		Name: "Clara Fischer", Email: "clara.fischer@example.com",
		Gender: "female", City: "München",
		SessionPreferences: []string{"in_person"},
		Modalities:         []string{"Gestalttherapie"},
		Profile: map[string]any{
			"about":            "Gestalttherapeutin in eigener Praxis.",
			"years_experience": 5,
		},
		Slots: []Slot{
			{DayOfWeek: day(6), TimeLocal: "10:00", Format: "in_person", Kind: "full", IsRecurring: true},
		},
	},
}

func main() {
	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}
	secret := os.Getenv("ADMIN_JWT_SECRET")
	if secret == "" {
		fmt.Println("ADMIN_JWT_SECRET is required")
		os.Exit(1)
	}

	token, err := adminToken(secret)
	if err != nil {
		fmt.Printf("failed to sign admin token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Seeding therapist directory")
	fmt.Println("API URL:", apiURL)

	client := &http.Client{Timeout: 10 * time.Second}
	for _, t := range directory {
		id, err := createTherapist(client, apiURL, token, t)
		if err != nil {
			fmt.Printf("  FAIL %s: %v\n", t.Name, err)
			continue
		}
		if err := post(client, apiURL+"/admin/therapists/"+id+"/verify", token, nil); err != nil {
			fmt.Printf("  FAIL verify %s: %v\n", t.Name, err)
			continue
		}
		for _, s := range t.Slots {
			if err := post(client, apiURL+"/admin/therapists/"+id+"/slots", token, s); err != nil {
				fmt.Printf("  FAIL slot for %s: %v\n", t.Name, err)
			}
		}
		fmt.Printf("  OK   %s (%s)\n", t.Name, id)
	}
}

func adminToken(secret string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   "seed",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func createTherapist(client *http.Client, apiURL, token string, t Therapist) (string, error) {
	body, err := doRequest(client, http.MethodPost, apiURL+"/admin/therapists", token, t)
	if err != nil {
		return "", err
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

func post(client *http.Client, url, token string, payload any) error {
	_, err := doRequest(client, http.MethodPost, url, token, payload)
	return err
}

func doRequest(client *http.Client, method, url, token string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s: status %d: %s", method, url, resp.StatusCode, data)
	}
	return data, nil
}
