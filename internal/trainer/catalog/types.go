// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_catalog

import "time"

// Person is a voice the user practices impersonating.
type Person struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Bio       string    `json:"bio"`
	AvatarURL string    `json:"avatarUrl"`
	CreatedAt time.Time `json:"createdAt"`
	Samples   []Sample  `gorm:"foreignKey:PersonID" json:"samples,omitempty"`
}

// Sample is one coach clip: the audio plus its word-timestamp transcript.
// Both are URLs because clips are hosted on a CDN, not stored inline.
type Sample struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	PersonID      string    `gorm:"index;not null" json:"personId"`
	Title         string    `json:"title"`
	AudioURL      string    `gorm:"not null" json:"audioUrl"`
	TranscriptURL string    `json:"transcriptUrl"`
	Duration      float64   `json:"duration"`
	CreatedAt     time.Time `json:"createdAt"`
}
