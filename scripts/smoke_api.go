package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:3000/api"

// Pretty print JSON helper
func prettyPrint(raw []byte) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Println(string(raw))
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url, token, sessionToken string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if sessionToken != "" {
		req.Header.Set("X-Session-Token", sessionToken)
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

// Walks the guest -> register -> migrate path against a running server.
func main() {
	color.Cyan("=== 1. Guest ask (no auth) ===")
	resp, body, err := sendRequest("POST", "/ask", "", "", map[string]string{"query": "what is vector search?"})
	if err != nil {
		color.Red("Request failed: %v", err)
		os.Exit(1)
	}
	prettyPrint(body)
	sessionToken := resp.Header.Get("X-Session-Token")
	color.Green("Session token: %s", sessionToken)

	color.Cyan("=== 2. Register ===")
	email := fmt.Sprintf("smoke+%d@agentmsa.dev", os.Getpid())
	_, body, err = sendRequest("POST", "/auth/register", "", "", map[string]string{
		"full_name":        "Smoke Tester",
		"email":            email,
		"password":         "smoke123",
		"confirm_password": "smoke123",
	})
	if err != nil {
		color.Red("Request failed: %v", err)
		os.Exit(1)
	}
	prettyPrint(body)

	var registered struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &registered); err != nil || registered.Data.AccessToken == "" {
		color.Red("No access token in register response")
		os.Exit(1)
	}
	accessToken := registered.Data.AccessToken

	color.Cyan("=== 3. Migrate guest conversation ===")
	_, body, err = sendRequest("POST", "/chats/migrate", accessToken, sessionToken, nil)
	if err != nil {
		color.Red("Request failed: %v", err)
		os.Exit(1)
	}
	prettyPrint(body)

	color.Cyan("=== 4. Chat list ===")
	_, body, err = sendRequest("GET", "/chats", accessToken, sessionToken, nil)
	if err != nil {
		color.Red("Request failed: %v", err)
		os.Exit(1)
	}
	prettyPrint(body)

	color.Green("Smoke run finished")
}
