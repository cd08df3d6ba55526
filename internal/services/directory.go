package services

import (
	"context"

	"vatelanka-driver/internal/models"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// TruckDirectory finds a truck by id by walking councils, districts, wards and supervisors
type TruckDirectory struct {
	client *firestore.Client
	log    *zap.Logger
}

func NewTruckDirectory(client *firestore.Client, log *zap.Logger) *TruckDirectory {
	if log == nil {
		log = zap.NewNop()
	}
	return &TruckDirectory{client: client, log: log}
}

func (d *TruckDirectory) FindTruck(ctx context.Context, truckID string) (*models.TruckDocument, error) {
	councils, err := d.client.Collection("municipalCouncils").Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Wrap(err, "list councils")
	}

	for _, council := range councils {
		districts, err := council.Ref.Collection("Districts").Documents(ctx).GetAll()
		if err != nil {
			return nil, errors.Wrap(err, "list districts")
		}
		for _, district := range districts {
			wards, err := district.Ref.Collection("Wards").Documents(ctx).GetAll()
			if err != nil {
				return nil, errors.Wrap(err, "list wards")
			}
			for _, ward := range wards {
				supervisors, err := ward.Ref.Collection("supervisors").Documents(ctx).GetAll()
				if err != nil {
					return nil, errors.Wrap(err, "list supervisors")
				}
				for _, supervisor := range supervisors {
					snap, err := supervisor.Ref.Collection("trucks").Doc(truckID).Get(ctx)
					if status.Code(err) == codes.NotFound {
						continue
					}
					if err != nil {
						return nil, errors.Wrap(err, "get truck")
					}

					id := models.TruckIdentity{
						MunicipalCouncil: council.Ref.ID,
						District:         district.Ref.ID,
						Ward:             ward.Ref.ID,
						SupervisorID:     supervisor.Ref.ID,
						TruckID:          truckID,
					}
					d.log.Info("🚛 Truck found", zap.String("truck_id", truckID), zap.String("path", id.DocumentPath()))
					return decodeTruck(id, snap.Data()), nil
				}
			}
		}
	}

	return nil, models.ErrTruckNotFound
}
