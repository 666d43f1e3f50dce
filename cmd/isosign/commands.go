package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/isosign/pkg/sidh"
	"github.com/luxfi/isosign/protocols/yoo"
)

// keyFile is the on-disk key pair representation.
type keyFile struct {
	Params  string
	Private []byte
	Public  []byte
}

func selectedParams() (*sidh.Params, error) {
	switch paramsName {
	case "p431":
		return sidh.P431(), nil
	case "p751":
		return sidh.P751(), nil
	default:
		return nil, fmt.Errorf("unknown parameter set %q", paramsName)
	}
}

func loadKey() (*sidh.Params, yoo.PrivateKey, *sidh.PublicKey, error) {
	data, err := os.ReadFile(keyFilePath)
	if err != nil {
		return nil, nil, nil, err
	}
	var kf keyFile
	if err := cbor.Unmarshal(data, &kf); err != nil {
		return nil, nil, nil, fmt.Errorf("parsing key file: %w", err)
	}
	paramsName = kf.Params
	p, err := selectedParams()
	if err != nil {
		return nil, nil, nil, err
	}
	pk, err := p.DecodePublicKey(kf.Public)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parsing public key: %w", err)
	}
	return p, yoo.PrivateKey(kf.Private), pk, nil
}

func runKeygen(cmd *cobra.Command, args []string) error {
	p, err := selectedParams()
	if err != nil {
		return err
	}
	sk, pk, err := yoo.GenerateKey(p, nil)
	if err != nil {
		return err
	}
	data, err := cbor.Marshal(&keyFile{
		Params:  p.Name,
		Private: sk,
		Public:  p.EncodePublicKey(pk),
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(keyFilePath, data, 0o600); err != nil {
		return err
	}
	fmt.Printf("wrote %s key pair to %s\n", p.Name, keyFilePath)
	return nil
}

func runSign(cmd *cobra.Command, args []string) error {
	p, sk, pk, err := loadKey()
	if err != nil {
		return err
	}
	opts := &yoo.Options{Batched: batched, Compressed: compressed, Workers: workers}
	start := time.Now()
	sig, err := yoo.Sign(p, sk, pk, opts)
	if err != nil {
		return err
	}
	if verbose {
		fmt.Printf("signed %d rounds in %s\n", p.NumRounds(), time.Since(start))
	}
	data, err := sig.MarshalBinary()
	if err != nil {
		return err
	}
	if err := os.WriteFile(sigFilePath, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote signature (%d bytes) to %s\n", len(data), sigFilePath)
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	p, _, pk, err := loadKey()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(sigFilePath)
	if err != nil {
		return err
	}
	sig := new(yoo.Signature)
	if err := sig.UnmarshalBinary(data); err != nil {
		return fmt.Errorf("parsing signature: %w", err)
	}
	opts := &yoo.Options{Batched: batched, Compressed: sig.Compressed, Workers: workers}
	start := time.Now()
	if err := yoo.Verify(p, pk, sig, opts); err != nil {
		return err
	}
	if verbose {
		fmt.Printf("verified in %s\n", time.Since(start))
	}
	fmt.Println("signature valid")
	return nil
}

func runBench(cmd *cobra.Command, args []string) error {
	p, err := selectedParams()
	if err != nil {
		return err
	}
	sk, pk, err := yoo.GenerateKey(p, nil)
	if err != nil {
		return err
	}
	modes := []struct {
		name string
		opts yoo.Options
	}{
		{"plain", yoo.Options{}},
		{"batched", yoo.Options{Batched: true}},
		{"batched+compressed", yoo.Options{Batched: true, Compressed: true}},
	}
	for _, mode := range modes {
		start := time.Now()
		var g errgroup.Group
		for i := 0; i < iterations; i++ {
			g.Go(func() error {
				opts := mode.opts
				sig, err := yoo.Sign(p, sk, pk, &opts)
				if err != nil {
					return err
				}
				return yoo.Verify(p, pk, sig, &opts)
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("%s: %w", mode.name, err)
		}
		fmt.Printf("%-20s %d iterations in %s\n", mode.name, iterations, time.Since(start))
	}
	return nil
}
