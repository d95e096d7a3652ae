// Minimal end-to-end check of a running DAO Radar API.
package main

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/stake-plus/solana-dao-radar/src/solana"
)

var (
	baseURL = getenv("API_URL", "http://localhost:8080/v1")
	// throwaway key; it owns no deposits, so notifications stay empty
	devKey = ed25519.NewKeyFromSeed(bytes.Repeat([]byte{1}, ed25519.SeedSize))
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	var pk solana.PublicKey
	copy(pk[:], devKey.Public().(ed25519.PublicKey))
	wallet := pk.String()

	token := signIn(wallet)
	checkFeatured()
	checkNotifications(token)
	checkSummary()
	checkRPC()

	fmt.Println("✓ all endpoints passed")
}

// ----------------------------- auth

func signIn(wallet string) string {
	var ch struct{ Nonce, Message string }
	doJSON("POST", "/auth/challenge", map[string]any{"wallet": wallet}, &ch, http.StatusOK)
	if ch.Message == "" {
		log.Fatal("challenge: empty message")
	}

	var sig solana.Signature
	copy(sig[:], ed25519.Sign(devKey, []byte(ch.Message)))

	var resp struct{ Token string }
	doJSON("POST", "/auth/verify", map[string]any{
		"wallet":    wallet,
		"signature": sig.String(),
	}, &resp, http.StatusOK)
	if resp.Token == "" {
		log.Fatal("verify: empty token")
	}
	return resp.Token
}

// ----------------------------- reads

func checkFeatured() {
	var resp struct {
		DAOs []struct{ RealmID, Name string }
	}
	doJSON("GET", "/daos/featured", nil, &resp, http.StatusOK)
	if len(resp.DAOs) == 0 {
		log.Fatal("featured: no DAOs")
	}
}

func checkNotifications(tok string) {
	var resp struct{ New []json.RawMessage }
	doAuth(tok, "POST", "/notifications", nil, &resp, http.StatusOK)
}

func checkSummary() {
	var resp struct{ Summary, Impact string }
	doJSON("POST", "/summarize", map[string]any{
		"title":       "Fund validator hardware",
		"description": "Allocate 500k USDC from the treasury to upgrade validator hardware.",
	}, &resp, http.StatusOK)
	if resp.Summary == "" {
		log.Fatal("summarize: empty summary")
	}
}

func checkRPC() {
	var resp struct{ Result uint64 }
	doJSON("POST", "/rpc", map[string]any{"jsonrpc": "2.0", "id": 1, "method": "getSlot"}, &resp, http.StatusOK)
	if resp.Result == 0 {
		log.Fatal("rpc: no slot")
	}
	doJSON("POST", "/rpc", map[string]any{"jsonrpc": "2.0", "id": 1, "method": "requestAirdrop"}, nil, http.StatusForbidden)
}

// ----------------------------- helpers

func doAuth(token, method, path string, body, out any, want int) {
	doReq(method, path, token, body, out, want)
}

func doJSON(method, path string, body, out any, want int) {
	doReq(method, path, "", body, out, want)
}

func doReq(method, path, token string, body, out any, want int) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			log.Fatalf("%s %s encode: %v", method, path, err)
		}
	}
	req, _ := http.NewRequest(method, baseURL+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	if res.StatusCode != want {
		log.Fatalf("%s %s: want %d got %d", method, path, want, res.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			log.Fatalf("%s %s decode: %v", method, path, err)
		}
	}
}
