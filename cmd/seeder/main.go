package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

const (
	TotalAccounts  = 1000
	InitialBalance = 10000 // $100.00
)

func main() {
	baseURL := os.Getenv("API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	client := &http.Client{Timeout: 5 * time.Second}

	log.Println("--- Seeding Accounts ---")
	log.Printf("Generating %d accounts...", TotalAccounts)

	ts := time.Now().UnixMilli()
	created, skipped := 0, 0

	for i := 1; i <= TotalAccounts; i++ {
		id := fmt.Sprintf("acct-%d", i)

		code, err := post(client, baseURL+"/api/v1/accounts", map[string]any{
			"timestamp":  ts,
			"account_id": id,
		})
		if err != nil {
			log.Fatalf("Account creation failed: %v", err)
		}
		ts++

		if code == http.StatusConflict {
			// Already seeded on a previous run.
			skipped++
			continue
		}
		if code != http.StatusCreated {
			log.Fatalf("Unexpected status %d creating %s", code, id)
		}

		code, err = post(client, baseURL+"/api/v1/accounts/"+id+"/deposits", map[string]any{
			"timestamp": ts,
			"amount":    InitialBalance,
		})
		if err != nil || code != http.StatusOK {
			log.Fatalf("Opening deposit failed for %s: status %d, err %v", id, code, err)
		}
		ts++
		created++
	}

	log.Printf("Successfully seeded %d accounts (%d already existed).", created, skipped)
}

func post(client *http.Client, url string, payload map[string]any) (int, error) {
	body, _ := json.Marshal(payload)
	resp, err := client.Post(url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}
