// server/internal/ledger/ledger.go
package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"agritrace-api-server/config"

	fabconfig "github.com/hyperledger/fabric-sdk-go/pkg/core/config"
	"github.com/hyperledger/fabric-sdk-go/pkg/fabsdk"
	"github.com/hyperledger/fabric-sdk-go/pkg/gateway"
)

// Anchor submits provenance facts (code issuance and revocation) to the
// traceability chaincode. The server operates with a single service
// identity kept in a filesystem wallet.
type Anchor struct {
	Gateway  *gateway.Gateway
	Contract *gateway.Contract
	SDK      *fabsdk.FabricSDK
}

func Initialize(cfg config.FabricConfig) (*Anchor, error) {
	os.Setenv("DISCOVERY_AS_LOCALHOST", "true")

	fsWallet, err := gateway.NewFileSystemWallet("wallet")
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	if err := populateWallet(fsWallet, cfg.OrgName, cfg.UserName, cfg.UserCertPath, cfg.UserKeyDir); err != nil {
		return nil, fmt.Errorf("failed to populate wallet: %w", err)
	}

	sdk, err := fabsdk.New(fabconfig.FromFile(filepath.Clean(cfg.ConnectionProfile)))
	if err != nil {
		return nil, fmt.Errorf("failed to create fabsdk instance: %w", err)
	}

	gw, err := gateway.Connect(
		gateway.WithSDK(sdk),
		gateway.WithIdentity(fsWallet, cfg.UserName),
	)
	if err != nil {
		sdk.Close()
		return nil, fmt.Errorf("failed to connect to gateway: %w", err)
	}

	network, err := gw.GetNetwork(cfg.ChannelName)
	if err != nil {
		gw.Close()
		sdk.Close()
		return nil, fmt.Errorf("failed to get network: %w", err)
	}

	return &Anchor{
		Gateway:  gw,
		Contract: network.GetContract(cfg.ChaincodeName),
		SDK:      sdk,
	}, nil
}

func (a *Anchor) Close() {
	a.Gateway.Close()
	a.SDK.Close()
}

// AnchorIssuance records a newly issued code and its payload digest on-chain.
func (a *Anchor) AnchorIssuance(ctx context.Context, code, batchID, digest string) error {
	_, err := a.Contract.SubmitTransaction("RecordIssuance", code, batchID, digest)
	if err != nil {
		return fmt.Errorf("failed to submit issuance transaction: %w", err)
	}
	return nil
}

// AnchorRevocation records a revocation on-chain.
func (a *Anchor) AnchorRevocation(ctx context.Context, code string) error {
	_, err := a.Contract.SubmitTransaction("RecordRevocation", code)
	if err != nil {
		return fmt.Errorf("failed to submit revocation transaction: %w", err)
	}
	return nil
}

// populateWallet loads the service identity into the wallet on first run.
func populateWallet(wallet *gateway.Wallet, orgName, userName, certPath, keyDir string) error {
	if wallet.Exists(userName) {
		return nil
	}

	cert, err := os.ReadFile(filepath.Clean(certPath))
	if err != nil {
		return err
	}

	keyPath, err := findPrivateKey(keyDir)
	if err != nil {
		return err
	}
	key, err := os.ReadFile(filepath.Clean(keyPath))
	if err != nil {
		return err
	}

	identity := gateway.NewX509Identity(orgName+"MSP", string(cert), string(key))
	return wallet.Put(userName, identity)
}

func findPrivateKey(dir string) (string, error) {
	keyPath := ""
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			keyPath = path
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if keyPath == "" {
		return "", fmt.Errorf("no private key found in directory %s", dir)
	}
	return keyPath, nil
}
