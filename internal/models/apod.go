package models

// Record представляет запись APOD после преобразования.
// Отсутствующие в ответе API поля хранятся как пустые строки, а не nil.
type Record struct {
	Title       string `json:"title"`
	Explanation string `json:"explanation"`
	URL         string `json:"url"`
	Date        string `json:"date"`
	MediaType   string `json:"media_type"`
}

// Row — сохранённая запись вместе с id, который назначает хранилище.
type Row struct {
	ID int64 `json:"id"`
	Record
}
