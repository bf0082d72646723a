package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/factorybridge/erp-mes-bridge/internal/domain"
	"github.com/factorybridge/erp-mes-bridge/internal/ports"
	"github.com/factorybridge/erp-mes-bridge/internal/translate/tomes"
)

// materialProfileCode is the plant profile the MES integration is limited to.
const materialProfileCode = "G3"

// MaterialMaster translates an ERP material-master snapshot into per-plant
// create/update documents and queues one manifest per eligible plant,
// session-keyed by the material number.
func (b *Bridge) MaterialMaster(ctx context.Context, msg ports.InboundMessage) error {
	archive, erp, err := b.invocation(handlerMaterialMaster, msg.MessageID)
	if err != nil {
		return err
	}
	loc, err := archive.Store(ctx, msg.Body, "input.json")
	if err != nil {
		return err
	}

	var material domain.MaterialMaster
	if err := json.Unmarshal(msg.Body, &material); err != nil {
		return fmt.Errorf("parse material master message: %w", err)
	}
	logger := b.logger.With("material", material.Product)
	logger.Info("received material master message", "input", loc.Link)

	if len(material.PlantData) == 0 {
		logger.Info("skipping message, it does not contain plant data")
		return nil
	}
	if !domain.IsMesRelevant(material.ProductClass) {
		logger.Info("skipping message, material is not MES relevant")
		return nil
	}

	var plants []domain.PlantData
	for _, plant := range material.PlantData {
		if !b.tables.Plant.HasMes(plant.Plant) {
			logger.Info("skipping plant, it has no MES mapping", "plant", plant.Plant)
			continue
		}
		if plant.ProfileCode != materialProfileCode {
			logger.Info("skipping plant, profile code is not G3",
				"plant", plant.Plant, "profile_code", plant.ProfileCode)
			continue
		}
		eligible, err := b.filter.PlantEligible(ctx, erp, plant.Plant, material.Product)
		if err != nil {
			return err
		}
		if eligible {
			plants = append(plants, plant)
		}
	}
	if len(plants) == 0 {
		logger.Info("skipping this message, no valid plants found")
		return nil
	}

	description, err := material.EnglishDescription()
	if err != nil {
		return err
	}

	for _, plant := range plants {
		mesPlant, err := b.tables.Plant.ToMes(plant.Plant)
		if err != nil {
			return err
		}
		docs, err := tomes.MaterialXML(&material, description, plant, b.tables.UOM)
		if err != nil {
			return err
		}

		createLoc, err := archive.Store(ctx, docs.Create, fmt.Sprintf("create-%s.xml", mesPlant))
		if err != nil {
			return err
		}
		updateLoc, err := archive.Store(ctx, docs.Update, fmt.Sprintf("update-%s.xml", mesPlant))
		if err != nil {
			return err
		}

		out := tomes.NewMaterialMessage(&material, mesPlant, msg.MessageID, createLoc.Key, updateLoc.Key)
		body, err := json.Marshal(out)
		if err != nil {
			return err
		}
		if _, err := archive.Store(ctx, body, fmt.Sprintf("mes-message-%s.json", mesPlant)); err != nil {
			return err
		}

		err = b.sender.Send(ctx, ports.OutboundMessage{
			Topic:         b.routes.MaterialQueues.Destination(plant.Plant),
			Body:          body,
			ContentType:   "application/json",
			CorrelationID: msg.CorrelationID,
			SessionKey:    material.Product,
		})
		if err != nil {
			return err
		}
		logger.Info("sent material master to MES", "plant", plant.Plant, "mes_plant", mesPlant)
	}
	return nil
}
