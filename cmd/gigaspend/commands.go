package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	giga "github.com/dogecoinfoundation/gigaspend/pkg"
	"github.com/dogecoinfoundation/gigaspend/pkg/settlement"
	"github.com/dogecoinfoundation/gigaspend/pkg/store"
	"github.com/dogecoinfoundation/gigaspend/pkg/txcer"
)

/*
	assemble and send work locally on the wallet snapshot, against the
	TXCer lock table in the configured store. locks, unlock and forceunlock
	operate on a running gigaspend by calling the admin REST API.
*/

// Assemble prints the signed envelope for the TxnParams in paramsFile.
func Assemble(c giga.Config, paramsFile string) error {
	var params giga.TxnParams
	err := readJSON(paramsFile, &params)
	if err != nil {
		return err
	}
	wallet, err := loadWallet(c)
	if err != nil {
		return err
	}
	env, err := assembleLocal(c, params, wallet)
	if err != nil {
		return err
	}
	b, err := env.Canonical()
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

// assembleLocal leaves out TXCers locked in the store, as the server does.
func assembleLocal(c giga.Config, params giga.TxnParams, wallet giga.Wallet) (giga.Envelope, error) {
	api, done, err := localAPI(c)
	if err != nil {
		return giga.Envelope{}, err
	}
	defer done()
	return api.Assemble(params, wallet)
}

// Send submits the SendRequest in requestFile and prints the result.
func Send(c giga.Config, requestFile string) error {
	var req giga.SendRequest
	err := readJSON(requestFile, &req)
	if err != nil {
		return err
	}
	wallet, err := loadWallet(c)
	if err != nil {
		return err
	}
	api, done, err := localAPI(c)
	if err != nil {
		return err
	}
	defer done()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(c.Settlement.TimeoutSecs+5)*time.Second)
	defer cancel()
	res, err := api.Send(ctx, req, wallet)
	if err != nil {
		return err
	}
	return printJSON(res)
}

// localAPI opens the lock store and wires an API without a bus.
func localAPI(c giga.Config) (giga.API, func(), error) {
	log := giga.NewLogger(c)
	locks, closeStore, err := store.OpenLockStore(c)
	if err != nil {
		return giga.API{}, nil, err
	}
	registry := txcer.NewRegistry(locks, nil, c.Locks, log)
	done := func() {
		registry.Close()
		closeStore()
		log.Sync()
	}
	return giga.NewAPI(registry, settlement.NewClient(c), nil, c), done, nil
}

func loadWallet(c giga.Config) (giga.Wallet, error) {
	wallet, err := store.LoadWallet(c.Gigaspend.WalletFile)
	if err != nil {
		return giga.Wallet{}, err
	}
	if wallet.AccountID == "" {
		wallet.AccountID = c.Gigaspend.AccountID
	}
	return wallet, nil
}

func ShowLocks(c giga.Config, account string, remote string) error {
	if account == "" {
		return fmt.Errorf("no account given and none configured")
	}
	u, err := adminAPIURL(c, remote, fmt.Sprintf("/locks/%s", url.PathEscape(account)))
	if err != nil {
		return err
	}
	var status giga.LockStatus
	err = callAdmin("GET", u, nil, &status)
	if err != nil {
		return err
	}
	return printJSON(status)
}

func Unlock(c giga.Config, account string, ids []string, remote string) error {
	u, err := adminAPIURL(c, remote, fmt.Sprintf("/locks/%s/unlock", url.PathEscape(account)))
	if err != nil {
		return err
	}
	var status giga.LockStatus
	err = callAdmin("POST", u, giga.UnlockRequest{IDs: ids}, &status)
	if err != nil {
		return err
	}
	return printJSON(status)
}

func ForceUnlock(c giga.Config, account string, remote string) error {
	u, err := adminAPIURL(c, remote, fmt.Sprintf("/locks/%s/forceunlock", url.PathEscape(account)))
	if err != nil {
		return err
	}
	var status giga.LockStatus
	err = callAdmin("POST", u, struct{}{}, &status)
	if err != nil {
		return err
	}
	return printJSON(status)
}

// work out the remote admin URL from args or config and return
// a complete path with our best guess
func adminAPIURL(c giga.Config, remote string, path string) (string, error) {
	base := remote
	if base == "" {
		host := c.WebAPI.Bind
		if host == "" {
			host = "localhost"
		}
		base = fmt.Sprintf("http://%s:%s/", host, c.WebAPI.Port)
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	p, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	return u.ResolveReference(p).String(), nil
}

// call the admin API; a nil body sends no body
func callAdmin(method string, u string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to serialize request body: %v", err)
		}
		reader = bytes.NewReader(jsonBody)
	}
	req, err := http.NewRequest(method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send HTTP request: %v", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected response status code: %d: %s", resp.StatusCode, string(b))
	}
	return json.Unmarshal(b, out)
}

func readJSON(path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	err = dec.Decode(out)
	if err != nil {
		return fmt.Errorf("%s: %v", path, err)
	}
	return nil
}

func printJSON(v any) error {
	o, err := json.MarshalIndent(v, "", " ")
	if err != nil {
		return err
	}
	fmt.Println(string(o))
	return nil
}
