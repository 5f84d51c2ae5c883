package domain

type Movie struct {
	ID              string
	Title           string
	Genre           string
	NumberInStock   int
	DailyRentalRate float64
}

type Customer struct {
	ID     string
	Name   string
	Phone  string
	IsGold bool
}
