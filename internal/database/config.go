package database

type Config struct {
	FileName string `envconfig:"COD_DB_FILE" default:"cod.db"`
}
