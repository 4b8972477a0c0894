package http

// DefaultPort matches the address printed in the join instructions; the
// portal URL stays short when it needs no port suffix.
const DefaultPort = 80

type Config struct {
	BindAddress string `mapstructure:"bind_address"`
	Port        uint   `mapstructure:"port"`
}
