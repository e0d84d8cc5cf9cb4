// token emite un JWT de prueba firmado con JWT_SECRET.
//
// Uso: go run ./cmd/token -user <id> -role admin|bodeguero|vendedor [-exp 60]
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jhoicas/inventario-movimientos/pkg/config"
	"github.com/jhoicas/inventario-movimientos/pkg/jwt"
)

func main() {
	userID := flag.String("user", "", "id del usuario (claim user_id)")
	role := flag.String("role", jwt.RoleAdmin, "rol: admin, bodeguero o vendedor")
	exp := flag.Int("exp", 0, "minutos de validez (por defecto JWT_EXPIRATION_MINUTES)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	if *userID == "" {
		fmt.Fprintln(os.Stderr, "-user es requerido")
		os.Exit(2)
	}
	switch *role {
	case jwt.RoleAdmin, jwt.RoleBodeguero, jwt.RoleVendedor:
	default:
		fmt.Fprintf(os.Stderr, "rol desconocido %q\n", *role)
		os.Exit(2)
	}
	minutes := cfg.JWT.Expiration
	if *exp > 0 {
		minutes = *exp
	}

	tok, err := jwt.Generate(cfg.JWT.Secret, *userID, *role, cfg.JWT.Issuer, minutes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Generar token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
