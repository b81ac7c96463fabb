package domain

import "time"

// Clock é a fonte de tempo usada para reabastecer buckets e calcular esperas.
type Clock interface {
	Now() time.Time
}
