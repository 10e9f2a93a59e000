// Package web holds the ledger page templates and the assets they load.
package web

import "embed"

// TemplatesFS holds the page and the ledger partial that HTMX swaps in.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the HTMX event glue.
//
//go:embed static/*
var StaticFS embed.FS
