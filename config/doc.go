// Package config holds the bridge configuration and loads it from JSON or
// YAML files.
//
// Every field has a default (see Default), so a file only needs the values
// it changes:
//
//	gateway:
//	  url: ws://10.0.0.5:9000/device
//	  reconnect_interval: 5s
//	network:
//	  body_cache:
//	    strategy: lru
//	    max_size: 50
//
// Load rejects unknown fields and runs Validate; validation failures are
// classified as invalid errors.
package config
