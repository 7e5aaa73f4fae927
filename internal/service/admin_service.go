package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"tiendapos/internal/repository"
)

// AdminService holds destructive maintenance operations.
type AdminService interface {
	// ResetDatabase deletes all sales, cash history and stock moves and
	// zeroes every product's stock. The catalog itself survives.
	ResetDatabase(ctx context.Context, confirm string) error
}

type adminService struct {
	admin repository.AdminRepository

	// confirmToken must be typed by the operator to wipe operational data.
	confirmToken string
}

func NewAdminService(admin repository.AdminRepository, confirmToken string) AdminService {
	return &adminService{admin: admin, confirmToken: strings.ToUpper(confirmToken)}
}

func (s *adminService) ResetDatabase(ctx context.Context, confirm string) error {
	if strings.ToUpper(strings.TrimSpace(confirm)) != s.confirmToken {
		return newErr(KindValidation, "confirmación requerida: escribe %q para borrar los datos", s.confirmToken)
	}
	if err := s.admin.Reset(ctx); err != nil {
		return err
	}
	log.Warn().Msg("base de datos operativa reiniciada")
	return nil
}
