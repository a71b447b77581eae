// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Zerofsserver is the zerofs service process: it loads the
// configuration and signing key, opens the durable block store and
// serves the operation envelope over HTTP.
package main

import (
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/NYTimes/gziphandler"
	"golang.org/x/net/netutil"

	"zerofs.io/config"
	"zerofs.io/errors"
	"zerofs.io/factotum"
	"zerofs.io/flags"
	"zerofs.io/log"
	"zerofs.io/service"
	"zerofs.io/store/disk"
	"zerofs.io/ucan"
	"zerofs.io/zerofs"
)

// maxConns bounds concurrent user connections.
const maxConns = 128

func main() {
	flags.Parse()

	if err := log.SetLevel(flags.Log); err != nil {
		log.Fatal(err)
	}

	cfg, err := config.Load(flags.Config)
	if err != nil {
		log.Fatal(err)
	}
	if cfg.LogLevel != "" {
		if err := log.SetLevel(cfg.LogLevel); err != nil {
			log.Fatal(err)
		}
	}

	key, err := factotum.New(flags.KeyDir)
	if errors.Is(errors.NotFound, err) {
		// No key on disk: run with an ephemeral identity.
		log.Info.Printf("zerofsserver: no signing key in %s, generating an ephemeral one", flags.KeyDir)
		key, err = factotum.Generate()
	}
	if err != nil {
		log.Fatal(err)
	}

	storeDir := cfg.Store.Dir
	if flags.StoreDir != "" {
		storeDir = flags.StoreDir
	}
	blocks, err := disk.New(storeDir, cfg.Store.CacheEntries)
	if err != nil {
		log.Fatal(err)
	}

	svc, err := service.New(service.ServiceConfig{
		Store:     blocks,
		Key:       key,
		NetworkID: zerofs.DID(cfg.Network.ID),
		Verifier:  ucan.InProcess{},
	})
	if err != nil {
		log.Fatal(err)
	}

	addr := flags.HTTPAddr
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", cfg.Network.Host, cfg.Network.UserPort)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}
	ln = netutil.LimitListener(ln, maxConns)

	mux := http.NewServeMux()
	mux.Handle("/", gziphandler.GzipHandler(opHandler(svc)))

	log.Info.Printf("zerofsserver: %s serving on %s", svc.NetworkID(), addr)
	log.Fatal(http.Serve(ln, mux))
}

// opHandler forwards operation envelopes to the service. The gateway
// itself adds nothing: authorization lives in the UCAN the request
// bears, and the envelope format is the service's own.
func opHandler(svc *service.FsService) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		token := ucan.Token(r.Header.Get("Authorization"))
		out, err := svc.ApplyRaw(r.Context(), body, token)
		if err != nil {
			log.Error.Printf("zerofsserver: %v", err)
			w.WriteHeader(statusOf(err))
			w.Write(errors.MarshalError(err))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(out)
	})
}

// statusOf maps an error kind to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(errors.NotFound, err):
		return http.StatusNotFound
	case errors.Is(errors.NotAllowedToReadDir, err),
		errors.Is(errors.PermissionEscalation, err),
		errors.Is(errors.Ucan, err):
		return http.StatusForbidden
	case errors.Is(errors.IO, err), errors.Is(errors.Store, err):
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}
