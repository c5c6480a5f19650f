package dto

import "time"

// RenderedPageDTO: отрендеренная страница, пригодная для кеширования
type RenderedPageDTO struct {
	HTML       []byte    `json:"html"`
	ETag       string    `json:"etag"`
	RenderedAt time.Time `json:"rendered_at"`
}

