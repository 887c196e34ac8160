package collect

import (
	"time"
)

type Config struct {
	RequestTimeout  time.Duration `envconfig:"COD_REQUEST_TIMEOUT" default:"60s"`
	MaxDataItemsLen int           `envconfig:"COD_MAX_DATA_ITEMS_LEN" default:"10000"`
}
