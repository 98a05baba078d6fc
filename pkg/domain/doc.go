// Package domain contains the core types of the download benchmark: download
// modes, timing measurements and the persisted benchmark runs of the service.
// They carry no infrastructure concerns so every layer can share them.
package domain
