// Package kmlsync owns the inbound surfaces of the asset sync server.
//
// Ownership boundary:
// - HTTP poll, master, modify and index routes
// - bus message decoding and the newline-delimited JSON bus listener
// - websocket command pushes
//
// Adapters translate transport envelopes into command.Processor calls and
// hold no asset logic of their own. Desired state lives in store.Store;
// polls are answered by reconcile.Engine and rendered by kml.Encoder.
package kmlsync
