package data

import (
	"errors"

	"github.com/photoproof/photoproof-backend/db"
)

var (
	ErrRecordNotFound      = errors.New("record not found")
	ErrRecordAlreadyExists = errors.New("record already exists")
	ErrMissingInput        = errors.New("missing input")
)

type Models struct {
	Users            *UserModel
	Features         *FeatureModel
	DBConnectionPool db.DBConnectionPool
}

func NewModels(dbConnectionPool db.DBConnectionPool) (*Models, error) {
	if dbConnectionPool == nil {
		return nil, errors.New("dbConnectionPool is required for NewModels")
	}
	return &Models{
		Users:            NewUserModel(dbConnectionPool, nil),
		Features:         &FeatureModel{dbConnectionPool: dbConnectionPool},
		DBConnectionPool: dbConnectionPool,
	}, nil
}
