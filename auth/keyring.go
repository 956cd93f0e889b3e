// Package auth keeps the media server access token in the system keyring.
package auth

import (
	"errors"
	"os"

	"github.com/kinema-cli/kinema/constant"
	"github.com/zalando/go-keyring"
)

// EnvToken overrides the keyring, for headless machines without a secret service.
const EnvToken = "KINEMA_TOKEN"

// ErrNoToken means the user has not logged in yet.
var ErrNoToken = errors.New("not logged in, run `kinema auth login`")

// account names the keyring entry of one server.
func account(server string) string {
	return "token@" + server
}

// SetToken stores the access token for server.
func SetToken(server, token string) error {
	return keyring.Set(constant.Kinema, account(server), token)
}

// GetToken returns the access token for server.
func GetToken(server string) (string, error) {
	if token, ok := os.LookupEnv(EnvToken); ok && token != "" {
		return token, nil
	}

	token, err := keyring.Get(constant.Kinema, account(server))
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoToken
	}
	return token, err
}

// DeleteToken forgets the access token for server.
func DeleteToken(server string) error {
	err := keyring.Delete(constant.Kinema, account(server))
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
