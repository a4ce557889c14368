package main

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

const analyzePrompt = `Analyse cette photo de grille de mots fléchés ou de mots croisés.

Extrais la structure complète au format JSON suivant :
{
  "rows": <nombre de lignes>,
  "cols": <nombre de colonnes>,
  "cells": [
    [
      {"black": true, "definitions": [{"text": "Définition", "direction": "right"}]},
      {"black": false},
      {"black": false, "letter": "A"},
      ...
    ],
    ...
  ]
}

Règles :
- Chaque case noire, ou contenant du texte et/ou une flèche, est une case bloquée : "black": true, avec "definitions" si elle porte des définitions.
- "direction" vaut "right" si la flèche pointe vers la droite, "down" si elle pointe vers le bas.
- Une case définition peut avoir 1 ou 2 définitions (une vers la droite, une vers le bas).
- Les cases vides (où le joueur écrit) ont "black": false et pas de "definitions".
- Une case blanche déjà imprimée avec une lettre porte cette lettre en majuscule dans "letter".
- Toutes les lignes ont exactement "cols" cases.
- Réponds UNIQUEMENT avec le JSON, sans commentaire ni markdown.`

// AnalyzeImage sends an image to Gemini Flash and returns the extracted grid.
func (g *GeminiClient) AnalyzeImage(ctx context.Context, imageData []byte, mimeType string) (*Grid, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.modelName,
		[]*genai.Content{{
			Role: "user",
			Parts: []*genai.Part{
				{Text: analyzePrompt},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: imageData}},
			},
		}},
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr(float32(0.1)),
			TopP:             genai.Ptr(float32(1)),
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	return parseGridJSON(resp.Text())
}

// parseGridJSON decodes and validates a grid returned by the model.
func parseGridJSON(text string) (*Grid, error) {
	if text == "" {
		return nil, fmt.Errorf("empty gemini response")
	}

	var g Grid
	if err := json.Unmarshal([]byte(text), &g); err != nil {
		return nil, fmt.Errorf("parse grid JSON: %w\nraw response: %s", err, text)
	}

	if g.Rows == 0 || g.Cols == 0 || len(g.Cells) == 0 {
		return nil, fmt.Errorf("invalid grid: %dx%d with %d cell rows", g.Rows, g.Cols, len(g.Cells))
	}
	if _, err := g.Model(); err != nil {
		return nil, fmt.Errorf("invalid grid: %w", err)
	}

	return &g, nil
}
