// Command marketctl is an operator tool for the marketplace API. It manages
// encrypted keyfiles and sends signed lifecycle requests to a running
// marketd instance.
//
// Usage:
//
//	marketctl keygen -out key.json -password <pw>
//	marketctl addr -key key.json -password <pw>
//	marketctl list -key key.json -password <pw> -price 100 -description "..." -duration 3600
//	marketctl buy -key key.json -password <pw> -id 1
//	marketctl unlist -key key.json -password <pw> -id 1
//	marketctl view -id 1
//	marketctl seller-items -seller 0x...
//
// The password may also be supplied via MARKET_KEY_PASSWORD, and the raw
// private key via MARKET_PRIVATE_KEY (bypassing the keyfile).
package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/alanyoungcy/fixedmarket/internal/crypto"
	"github.com/alanyoungcy/fixedmarket/internal/server/middleware"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "keygen":
		err = cmdKeygen(os.Args[2:])
	case "addr":
		err = cmdAddr(os.Args[2:])
	case "list":
		err = cmdList(os.Args[2:])
	case "buy":
		err = cmdBuy(os.Args[2:])
	case "unlist":
		err = cmdUnlist(os.Args[2:])
	case "view":
		err = cmdView(os.Args[2:])
	case "seller-items":
		err = cmdSellerItems(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "marketctl: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: marketctl <keygen|addr|list|buy|unlist|view|seller-items> [flags]")
}

// keyFlags are shared by every subcommand that signs requests.
type keyFlags struct {
	keyPath  *string
	password *string
}

func addKeyFlags(fs *flag.FlagSet) keyFlags {
	return keyFlags{
		keyPath:  fs.String("key", "key.json", "path to encrypted keyfile"),
		password: fs.String("password", os.Getenv("MARKET_KEY_PASSWORD"), "keyfile password (or MARKET_KEY_PASSWORD)"),
	}
}

func (kf keyFlags) signer() (*crypto.RequestSigner, error) {
	keyHex, err := crypto.LoadKeyFile(*kf.keyPath, *kf.password)
	if err != nil {
		return nil, err
	}
	return crypto.NewRequestSigner(keyHex)
}

func cmdKeygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	out := fs.String("out", "key.json", "output keyfile path")
	password := fs.String("password", os.Getenv("MARKET_KEY_PASSWORD"), "keyfile password (or MARKET_KEY_PASSWORD)")
	_ = fs.Parse(args)

	if *password == "" {
		return fmt.Errorf("keygen: password required")
	}

	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return fmt.Errorf("keygen: %w", err)
	}
	keyHex := hex.EncodeToString(ethcrypto.FromECDSA(key))

	sealed, err := crypto.SealKey(keyHex, *password)
	if err != nil {
		return fmt.Errorf("keygen: %w", err)
	}
	if err := os.WriteFile(*out, sealed, 0o600); err != nil {
		return fmt.Errorf("keygen: write %s: %w", *out, err)
	}

	addr := ethcrypto.PubkeyToAddress(key.PublicKey).Hex()
	fmt.Printf("wrote %s\nidentity: %s\n", *out, addr)
	return nil
}

func cmdAddr(args []string) error {
	fs := flag.NewFlagSet("addr", flag.ExitOnError)
	kf := addKeyFlags(fs)
	_ = fs.Parse(args)

	signer, err := kf.signer()
	if err != nil {
		return err
	}
	fmt.Println(signer.Identity())
	return nil
}

func cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	kf := addKeyFlags(fs)
	host := fs.String("host", "http://localhost:8080", "marketd base URL")
	price := fs.Int64("price", 0, "asking price (must be positive)")
	description := fs.String("description", "", "item description")
	duration := fs.Int64("duration", 86400, "listing duration in seconds")
	_ = fs.Parse(args)

	signer, err := kf.signer()
	if err != nil {
		return err
	}

	body := map[string]any{
		"seller":           signer.Identity(),
		"price":            *price,
		"description":      *description,
		"duration_seconds": *duration,
	}
	return signedPost(signer, *host, "/api/items", body)
}

func cmdBuy(args []string) error {
	fs := flag.NewFlagSet("buy", flag.ExitOnError)
	kf := addKeyFlags(fs)
	host := fs.String("host", "http://localhost:8080", "marketd base URL")
	id := fs.Int64("id", 0, "item id")
	_ = fs.Parse(args)

	signer, err := kf.signer()
	if err != nil {
		return err
	}

	body := map[string]any{"buyer": signer.Identity()}
	return signedPost(signer, *host, fmt.Sprintf("/api/items/%d/buy", *id), body)
}

func cmdUnlist(args []string) error {
	fs := flag.NewFlagSet("unlist", flag.ExitOnError)
	kf := addKeyFlags(fs)
	host := fs.String("host", "http://localhost:8080", "marketd base URL")
	id := fs.Int64("id", 0, "item id")
	_ = fs.Parse(args)

	signer, err := kf.signer()
	if err != nil {
		return err
	}

	body := map[string]any{"seller": signer.Identity()}
	return signedPost(signer, *host, fmt.Sprintf("/api/items/%d/unlist", *id), body)
}

func cmdView(args []string) error {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	host := fs.String("host", "http://localhost:8080", "marketd base URL")
	id := fs.Int64("id", 0, "item id")
	_ = fs.Parse(args)

	return get(*host + fmt.Sprintf("/api/items/%d", *id))
}

func cmdSellerItems(args []string) error {
	fs := flag.NewFlagSet("seller-items", flag.ExitOnError)
	host := fs.String("host", "http://localhost:8080", "marketd base URL")
	seller := fs.String("seller", "", "seller identity")
	_ = fs.Parse(args)

	if *seller == "" {
		return fmt.Errorf("seller-items: -seller required")
	}
	return get(*host + "/api/items?seller=" + url.QueryEscape(*seller))
}

// signedPost signs the request payload with the sender's key and posts it
// with the identity, timestamp, and signature headers the server verifies.
func signedPost(signer *crypto.RequestSigner, host, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	timestamp := time.Now().Unix()
	sig, err := signer.SignRequest(http.MethodPost, path, payload, timestamp)
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, host+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderIdentity, string(signer.Identity()))
	req.Header.Set(middleware.HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	req.Header.Set(middleware.HeaderSignature, sig)

	return doRequest(req)
}

func get(rawURL string) error {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	return doRequest(req)
}

func doRequest(req *http.Request) error {
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n%s\n", resp.Status, bytes.TrimSpace(out))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return nil
}
