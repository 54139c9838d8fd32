// Package models lists the OpenAI models usable for speech synthesis and
// translation with the configured API key.
package models
