// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

// Package logging provides zerolog-based structured logging for Contracthub.
//
// A single process-wide logger is configured once from main and used through
// package-level helpers:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("contract_id", id).Msg("Contract created")
//	logging.Error().Err(err).Msg("Dispatch failed")
//
// Request-scoped fields (request_id, user_id) are attached with Ctx:
//
//	logging.Ctx(r.Context()).Warn().Msg("Validation failed")
//
// Libraries that expect a *slog.Logger (sutureslog, watermill) receive one
// backed by the same zerolog instance via NewSlogLogger.
//
// Always terminate event chains with Msg or Send; an unterminated chain is
// never written.
package logging
