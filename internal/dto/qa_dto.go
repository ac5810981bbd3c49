package dto

import "github.com/google/uuid"

type HistoryTurnDTO struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required,max=8000"`
}

type AskRequest struct {
	Question           string           `json:"question" validate:"required_without_all=ImageBase64 FileBase64,max=4000"`
	Branch             string           `json:"branch" validate:"required,max=64"`
	ExpandSearchOnline bool             `json:"expandSearchOnline"`
	ImageBase64        string           `json:"imageBase64,omitempty"`
	FileBase64         string           `json:"fileBase64,omitempty"`
	FileMimeType       string           `json:"fileMimeType,omitempty" validate:"required_with=FileBase64,max=128"`
	History            []HistoryTurnDTO `json:"history,omitempty" validate:"max=50,dive"`
	BookIds            []uuid.UUID      `json:"bookIds,omitempty" validate:"max=20"`
}

type SourceDTO struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
	Url   string `json:"url,omitempty"`
	Page  int    `json:"page,omitempty"`
}

type AskResponse struct {
	Answer           string      `json:"answer"`
	Source           string      `json:"source"` // "cache" | "textbook" | "web" | "general"
	SourceBookName   string      `json:"sourceBookName,omitempty"`
	SourcePageNumber int         `json:"sourcePageNumber,omitempty"`
	Lang             string      `json:"lang"`
	Sources          []SourceDTO `json:"sources,omitempty"`
}

type QuickRequest struct {
	Question string `json:"question" validate:"required,max=4000"`
	Branch   string `json:"branch" validate:"max=64"`
}

type QuickResponse struct {
	Answer string `json:"answer"`
	Lang   string `json:"lang"`
}
