package exchange

const catalogDocument = `<?xml version="1.0" encoding="UTF-8"?>
<КоммерческаяИнформация ВерсияСхемы="2.10" ДатаФормирования="2024-05-01T10:00:00">
  <Классификатор>
    <Ид>classifier-1</Ид>
    <Наименование>Классификатор</Наименование>
    <Группы>
      <Группа>
        <Ид>cat-root</Ид>
        <Наименование>Одежда</Наименование>
        <Группы>
          <Группа>
            <Ид>cat-child</Ид>
            <Наименование>Футболки</Наименование>
          </Группа>
        </Группы>
      </Группа>
    </Группы>
  </Классификатор>
  <Каталог СодержитТолькоИзменения="false">
    <Ид>catalog-1</Ид>
    <ИдКлассификатора>classifier-1</ИдКлассификатора>
    <Наименование>Каталог товаров</Наименование>
    <Товары>
      <Товар>
        <Ид>prod-1</Ид>
        <Артикул>TS-001</Артикул>
        <Наименование>Футболка белая</Наименование>
        <Группы>
          <Ид>cat-child</Ид>
        </Группы>
      </Товар>
    </Товары>
  </Каталог>
</КоммерческаяИнформация>
`

const offersDocument = `<?xml version="1.0" encoding="UTF-8"?>
<КоммерческаяИнформация ВерсияСхемы="2.10">
  <ПакетПредложений>
    <Ид>package-1</Ид>
    <ИдКаталога>catalog-1</ИдКаталога>
    <ТипыЦен>
      <ТипЦены>
        <Ид>price-wholesale</Ид>
        <Наименование>Оптовая</Наименование>
        <Валюта>RUB</Валюта>
      </ТипЦены>
      <ТипЦены>
        <Ид>price-retail</Ид>
        <Наименование>Розничная</Наименование>
        <Валюта>RUB</Валюта>
      </ТипЦены>
    </ТипыЦен>
    <Предложения>
      <Предложение>
        <Ид>prod-1</Ид>
        <Наименование>Футболка белая</Наименование>
        <Цены>
          <Цена>
            <ИдТипаЦены>price-wholesale</ИдТипаЦены>
            <ЦенаЗаЕдиницу>80</ЦенаЗаЕдиницу>
          </Цена>
          <Цена>
            <ИдТипаЦены>price-retail</ИдТипаЦены>
            <ЦенаЗаЕдиницу>100</ЦенаЗаЕдиницу>
          </Цена>
        </Цены>
        <Склад ИдСклада="A" КоличествоНаСкладе="3"/>
        <Склад ИдСклада="B" КоличествоНаСкладе="5"/>
      </Предложение>
    </Предложения>
  </ПакетПредложений>
</КоммерческаяИнформация>
`

const orderUpdatesDocument = `<?xml version="1.0" encoding="UTF-8"?>
<КоммерческаяИнформация ВерсияСхемы="2.10">
  <Документ>
    <Ид>order-guid-1</Ид>
    <Номер>1001</Номер>
    <ЗначенияРеквизитов>
      <ЗначениеРеквизита>
        <Наименование>Статус заказа</Наименование>
        <Значение>Выполнен</Значение>
      </ЗначениеРеквизита>
    </ЗначенияРеквизитов>
  </Документ>
  <Документ>
    <Ид>order-guid-unknown</Ид>
    <Номер>1002</Номер>
    <ЗначенияРеквизитов>
      <ЗначениеРеквизита>
        <Наименование>Номер отправления</Наименование>
        <Значение>TRACK-9</Значение>
      </ЗначениеРеквизита>
    </ЗначенияРеквизитов>
  </Документ>
</КоммерческаяИнформация>
`
